package api

import (
	"log"
	"net/http"
	"sort"

	"github.com/ayusman/signcapture/internal/labels"
	"github.com/ayusman/signcapture/internal/store"
)

// SamplesHandler serves read-only views of the dataset catalog.
type SamplesHandler struct {
	labels  *labels.Registry
	catalog *store.Store
}

// NewSamplesHandler creates a SamplesHandler. catalog may be nil, in which
// case every sign reports zero samples.
func NewSamplesHandler(reg *labels.Registry, catalog *store.Store) *SamplesHandler {
	return &SamplesHandler{labels: reg, catalog: catalog}
}

// Response types

type signResponse struct {
	Sign    string `json:"sign"`
	LabelID int    `json:"label_id"`
	Samples int    `json:"samples"`
}

type listSignsResponse struct {
	Signs []signResponse `json:"signs"`
}

type listSamplesResponse struct {
	Samples []*store.Sample `json:"samples"`
	Videos  []*store.Video  `json:"videos"`
}

// Signs handles GET /api/signs. Registry signs come first in label order,
// followed by any captured sign outside the vocabulary.
func (h *SamplesHandler) Signs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts := map[string]int{}
	if h.catalog != nil {
		var err error
		if counts, err = h.catalog.Samples().CountBySign(); err != nil {
			log.Printf("count samples: %v", err)
			writeMessage(w, http.StatusInternalServerError, "Failed to list signs")
			return
		}
	}

	response := listSignsResponse{Signs: make([]signResponse, 0, h.labels.Len())}
	known := make(map[string]bool)
	for _, sign := range h.labels.Signs() {
		known[sign] = true
		response.Signs = append(response.Signs, signResponse{
			Sign:    sign,
			LabelID: h.labels.Lookup(sign),
			Samples: counts[sign],
		})
	}

	var extra []string
	for sign := range counts {
		if !known[sign] {
			extra = append(extra, sign)
		}
	}
	sort.Strings(extra)
	for _, sign := range extra {
		response.Signs = append(response.Signs, signResponse{Sign: sign, LabelID: labels.Unknown, Samples: counts[sign]})
	}

	writeJSON(w, http.StatusOK, response)
}

// Samples handles GET /api/samples?sign=x. Without a sign every sample is listed.
func (h *SamplesHandler) Samples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.catalog == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Catalog not configured")
		return
	}

	sign := r.URL.Query().Get("sign")
	samples, err := h.catalog.Samples().List(sign)
	if err != nil {
		log.Printf("list samples for %q: %v", sign, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}
	videos, err := h.catalog.Videos().List(sign)
	if err != nil {
		log.Printf("list videos for %q: %v", sign, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}

	response := listSamplesResponse{
		Samples: samples,
		Videos:  videos,
	}
	if response.Samples == nil {
		response.Samples = []*store.Sample{}
	}
	if response.Videos == nil {
		response.Videos = []*store.Video{}
	}
	writeJSON(w, http.StatusOK, response)
}
