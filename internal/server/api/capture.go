package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ayusman/signcapture/internal/capture"
	"github.com/ayusman/signcapture/internal/detector"
)

// Response messages shared with the capture form.
const (
	msgInvalidData      = "Invalid data"
	msgDecodeFailed     = "Failed to decode image"
	msgImageProcessed   = "Image processed"
	msgProcessingFailed = "An error occurred during processing."
	msgSaveImagesFailed = "An error occurred while saving the images."
	msgSaveVideoFailed  = "An error occurred while saving the video."
)

const (
	jpegMIME            = "image/jpeg"
	defaultMaxBodyBytes = 64 << 20
)

// CaptureHandler serves the propose, commit and video endpoints.
type CaptureHandler struct {
	pipeline *capture.Pipeline
	maxBody  int64
}

// NewCaptureHandler creates a CaptureHandler. Request bodies larger than
// maxBody bytes are rejected; zero selects the default limit.
func NewCaptureHandler(p *capture.Pipeline, maxBody int64) *CaptureHandler {
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &CaptureHandler{pipeline: p, maxBody: maxBody}
}

// Request types

type captureImageRequest struct {
	Image string `json:"image"`
	Sign  string `json:"sign"`
}

type saveImageRequest struct {
	AnnotatedImage string                `json:"annotated_image"`
	OriginalImage  string                `json:"original_image"`
	Sign           string                `json:"sign"`
	Keypoints      detector.LandmarkSets `json:"keypoints"`
}

type captureVideoRequest struct {
	Video string `json:"video"`
	Sign  string `json:"sign"`
}

// Response types

type captureImageResponse struct {
	Message        string                `json:"message"`
	KeypointsSaved bool                  `json:"keypoints_saved"`
	AnnotatedImage string                `json:"annotated_image,omitempty"`
	OriginalImage  string                `json:"original_image,omitempty"`
	Keypoints      detector.LandmarkSets `json:"keypoints,omitempty"`
}

// decodeBody parses a POST JSON body into v. It writes the error response
// itself and reports whether the handler should continue.
func (h *CaptureHandler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
		return false
	}
	return true
}

// CaptureImage handles POST /capture_image.
func (h *CaptureHandler) CaptureImage(w http.ResponseWriter, r *http.Request) {
	var req captureImageRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Image == "" || req.Sign == "" {
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
		return
	}

	img, err := capture.DecodeDataURI(req.Image)
	if err != nil {
		log.Printf("capture image: %v", err)
		writeMessage(w, http.StatusInternalServerError, msgProcessingFailed)
		return
	}

	res, err := h.pipeline.Propose(img, req.Sign)
	if err != nil {
		switch capture.KindOf(err) {
		case capture.KindValidation:
			writeMessage(w, http.StatusBadRequest, msgInvalidData)
		case capture.KindDecode:
			writeMessage(w, http.StatusBadRequest, msgDecodeFailed)
		default:
			writeMessage(w, http.StatusInternalServerError, msgProcessingFailed)
		}
		return
	}

	response := captureImageResponse{
		Message:        msgImageProcessed,
		KeypointsSaved: res.Detected,
	}
	if res.Detected {
		response.AnnotatedImage = capture.EncodeDataURI(jpegMIME, res.Annotated)
		response.OriginalImage = capture.EncodeDataURI(jpegMIME, res.Original)
		response.Keypoints = res.Keypoints
	}
	writeJSON(w, http.StatusOK, response)
}

// SaveImage handles POST /save_image.
func (h *CaptureHandler) SaveImage(w http.ResponseWriter, r *http.Request) {
	var req saveImageRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.AnnotatedImage == "" || req.OriginalImage == "" || req.Sign == "" || len(req.Keypoints) == 0 {
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
		return
	}

	original, err := capture.DecodeDataURI(req.OriginalImage)
	if err != nil {
		log.Printf("save image: original: %v", err)
		writeMessage(w, http.StatusInternalServerError, msgSaveImagesFailed)
		return
	}
	annotated, err := capture.DecodeDataURI(req.AnnotatedImage)
	if err != nil {
		log.Printf("save image: annotated: %v", err)
		writeMessage(w, http.StatusInternalServerError, msgSaveImagesFailed)
		return
	}

	res, err := h.pipeline.Commit(capture.CommitRequest{
		Original:  original,
		Annotated: annotated,
		Sign:      req.Sign,
		Keypoints: req.Keypoints,
	})
	if err != nil {
		if capture.KindOf(err) == capture.KindValidation {
			writeMessage(w, http.StatusBadRequest, msgInvalidData)
			return
		}
		writeMessage(w, http.StatusInternalServerError, msgSaveImagesFailed)
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("Images saved as %s and %s", res.OriginalFile, res.AnnotatedFile))
}

// CaptureVideo handles POST /capture_video.
func (h *CaptureHandler) CaptureVideo(w http.ResponseWriter, r *http.Request) {
	var req captureVideoRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Video == "" || req.Sign == "" {
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
		return
	}

	video, err := capture.DecodeDataURI(req.Video)
	if err != nil {
		log.Printf("capture video: %v", err)
		writeMessage(w, http.StatusInternalServerError, msgSaveVideoFailed)
		return
	}

	res, err := h.pipeline.StoreVideo(video, req.Sign)
	if err != nil {
		if capture.KindOf(err) == capture.KindValidation {
			writeMessage(w, http.StatusBadRequest, msgInvalidData)
			return
		}
		writeMessage(w, http.StatusInternalServerError, msgSaveVideoFailed)
		return
	}

	writeMessage(w, http.StatusOK, "Video saved as "+res.Filename)
}
