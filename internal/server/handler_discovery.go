package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "slicer API",
		Version:     "v1",
		Description: "Admission and inspection API for the slicer time-slicing scheduler",
		Endpoints: []endpointInfo{
			{"/api/v1/jobs", []string{"GET", "POST"}, "Job table snapshot; POST {\"path\"} queues an executable for admission"},
			{"/api/v1/jobs/{index}", []string{"GET"}, "Single job by table index"},
			{"/api/v1/runs", []string{"GET"}, "Recorded scheduler runs, newest first"},
			{"/api/v1/runs/{id}", []string{"GET"}, "Single run with its final job table"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
