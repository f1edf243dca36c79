// Package capture orchestrates the propose, commit and video flows of the
// dataset capture tool.
package capture

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/signcapture/internal/annotate"
	"github.com/ayusman/signcapture/internal/dataset"
	"github.com/ayusman/signcapture/internal/detector"
	"github.com/ayusman/signcapture/internal/labels"
	"github.com/ayusman/signcapture/internal/metrics"
	"github.com/ayusman/signcapture/internal/store"
)

// Event kinds published to a Notifier.
const (
	EventSample = "sample"
	EventVideo  = "video"
)

// Event describes one artifact set that reached the dataset.
type Event struct {
	Type      string   `json:"type"`
	Sign      string   `json:"sign"`
	Timestamp string   `json:"timestamp"`
	Files     []string `json:"files"`
}

// Notifier receives an Event after every successful commit or video store.
type Notifier interface {
	Notify(Event)
}

// Config holds the collaborators of a Pipeline. Catalog, Metrics and
// Notifier are optional.
type Config struct {
	Detector detector.Detector
	Renderer *annotate.Renderer
	Dataset  *dataset.Store
	Ledger   *dataset.Ledger
	Labels   *labels.Registry
	Stamper  *dataset.Stamper
	MaxHands int

	Catalog  *store.Store
	Metrics  *metrics.Metrics
	Notifier Notifier
}

// Pipeline runs capture operations. It is safe for concurrent use.
type Pipeline struct {
	config Config
}

// New creates a Pipeline. Detector, Dataset, Ledger and Labels are required.
func New(config Config) (*Pipeline, error) {
	switch {
	case config.Detector == nil:
		return nil, errors.New("capture: detector is required")
	case config.Dataset == nil:
		return nil, errors.New("capture: dataset store is required")
	case config.Ledger == nil:
		return nil, errors.New("capture: ledger is required")
	case config.Labels == nil:
		return nil, errors.New("capture: label registry is required")
	}
	if config.Renderer == nil {
		config.Renderer = annotate.NewRenderer(annotate.DefaultRadius, annotate.DefaultQuality)
	}
	if config.Stamper == nil {
		config.Stamper = dataset.NewStamper()
	}
	if config.MaxHands <= 0 {
		config.MaxHands = detector.DefaultConfig().MaxHands
	}
	return &Pipeline{config: config}, nil
}

// ProposalResult is the outcome of Propose. When Detected is false the
// other fields are empty.
type ProposalResult struct {
	Detected  bool
	Original  []byte
	Annotated []byte
	Keypoints detector.LandmarkSets
}

// Propose detects hands in image and renders a preview. Finding no hand is
// a normal result, not an error.
func (p *Pipeline) Propose(image []byte, sign string) (result *ProposalResult, err error) {
	const op = "propose"
	reqID := uuid.New().String()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindProcessing, Op: op, Sign: sign, Err: fmt.Errorf("panic: %v", r)}
			result = nil
		}
		outcome := metrics.OutcomeNoHand
		switch {
		case err != nil:
			outcome = metrics.OutcomeError
			p.logFailure(reqID, err)
		case result.Detected:
			outcome = metrics.OutcomeDetected
		}
		p.config.Metrics.ObserveProposal(outcome, time.Since(start))
	}()

	if len(image) == 0 || sign == "" {
		return nil, &Error{Kind: KindValidation, Op: op, Sign: sign, Err: ErrMissingField}
	}

	img, err := gocv.IMDecode(image, gocv.IMReadColor)
	if err != nil || img.Empty() {
		if err == nil {
			img.Close()
			err = ErrUndecodable
		}
		return nil, &Error{Kind: KindDecode, Op: op, Sign: sign, Err: err}
	}
	defer img.Close()

	hands, err := p.config.Detector.Detect(&img)
	if err != nil {
		return nil, &Error{Kind: KindProcessing, Op: op, Sign: sign, Err: fmt.Errorf("detect: %w", err)}
	}
	if len(hands) > p.config.MaxHands {
		hands = hands[:p.config.MaxHands]
	}
	if len(hands) == 0 {
		log.Printf("[%s] no hands detected for %q", reqID, sign)
		return &ProposalResult{}, nil
	}

	sets := detector.SetsFromHands(hands)
	annotated, err := p.config.Renderer.Render(img, sets)
	if err != nil {
		return nil, &Error{Kind: KindProcessing, Op: op, Sign: sign, Err: fmt.Errorf("render: %w", err)}
	}

	log.Printf("[%s] %d hand(s) detected for %q", reqID, len(sets), sign)
	return &ProposalResult{
		Detected:  true,
		Original:  image,
		Annotated: annotated,
		Keypoints: sets,
	}, nil
}

// CommitRequest carries an operator-confirmed proposal.
type CommitRequest struct {
	Original  []byte
	Annotated []byte
	Sign      string
	Keypoints detector.LandmarkSets
}

// CommitResult names the artifacts written by Commit.
type CommitResult struct {
	Timestamp      string
	LabelID        int
	OriginalFile   string
	AnnotatedFile  string
	AnnotationFile string
}

// Commit persists a confirmed sample: both images, the annotation record,
// then two ledger rows. Nothing is written when validation fails. Artifacts
// written before a failing step are left in place.
func (p *Pipeline) Commit(req CommitRequest) (result *CommitResult, err error) {
	const op = "commit"
	reqID := uuid.New().String()
	var ts string

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindProcessing, Op: op, Sign: req.Sign, Timestamp: ts, Err: fmt.Errorf("panic: %v", r)}
			result = nil
		}
		if err != nil {
			p.logFailure(reqID, err)
		}
		p.config.Metrics.ObserveCommit(err)
	}()

	if err := validateCommit(req); err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Sign: req.Sign, Err: err}
	}

	ts = p.config.Stamper.Next()
	storageErr := func(step string, err error) error {
		return &Error{Kind: KindStorage, Op: op, Sign: req.Sign, Timestamp: ts, Err: fmt.Errorf("%s: %w", step, err)}
	}

	ds := p.config.Dataset
	if err := ds.Provision(req.Sign, dataset.Kinds...); err != nil {
		return nil, storageErr("provision", err)
	}
	originalFile, err := ds.WriteOriginal(req.Sign, ts, req.Original)
	if err != nil {
		return nil, storageErr("write original image", err)
	}
	annotatedFile, err := ds.WriteAnnotated(req.Sign, ts, req.Annotated)
	if err != nil {
		return nil, storageErr("write annotated image", err)
	}
	annotationFile, err := ds.WriteAnnotation(req.Sign, ts, &dataset.Annotation{
		FilenameOriginal:  originalFile,
		FilenameAnnotated: annotatedFile,
		Sign:              req.Sign,
		Keypoints:         req.Keypoints,
	})
	if err != nil {
		return nil, storageErr("write annotation", err)
	}

	labelID := p.config.Labels.Lookup(req.Sign)
	if labelID == labels.Unknown {
		log.Printf("[%s] sign %q is not in the label registry, recording label %d", reqID, req.Sign, labels.Unknown)
	}
	err = p.config.Ledger.Append(
		dataset.Row{Filename: originalFile, Sign: req.Sign, LabelID: labelID, Timestamp: ts},
		dataset.Row{Filename: annotatedFile, Sign: req.Sign, LabelID: labelID, Timestamp: ts},
	)
	if err != nil {
		log.Printf("[%s] %s and %s are on disk without ledger rows", reqID, originalFile, annotatedFile)
		return nil, storageErr("append ledger", err)
	}

	log.Printf("[%s] committed %s/%s (label %d)", reqID, req.Sign, ts, labelID)

	if p.config.Catalog != nil {
		err := p.config.Catalog.Samples().Save(&store.Sample{
			Sign:           req.Sign,
			LabelID:        labelID,
			Timestamp:      ts,
			OriginalFile:   originalFile,
			AnnotatedFile:  annotatedFile,
			AnnotationFile: annotationFile,
			Hands:          len(req.Keypoints),
		})
		if err != nil {
			log.Printf("[%s] catalog update failed for %s/%s: %v", reqID, req.Sign, ts, err)
		}
	}
	p.notify(Event{
		Type:      EventSample,
		Sign:      req.Sign,
		Timestamp: ts,
		Files:     []string{originalFile, annotatedFile, annotationFile},
	})

	return &CommitResult{
		Timestamp:      ts,
		LabelID:        labelID,
		OriginalFile:   originalFile,
		AnnotatedFile:  annotatedFile,
		AnnotationFile: annotationFile,
	}, nil
}

func validateCommit(req CommitRequest) error {
	switch {
	case len(req.Original) == 0:
		return fmt.Errorf("%w: original image", ErrMissingField)
	case len(req.Annotated) == 0:
		return fmt.Errorf("%w: annotated image", ErrMissingField)
	case req.Sign == "":
		return fmt.Errorf("%w: sign", ErrMissingField)
	case len(req.Keypoints) == 0:
		return ErrNoLandmarks
	}
	for i, set := range req.Keypoints {
		if len(set) == 0 {
			return fmt.Errorf("%w: hand %d has no points", ErrNoLandmarks, i)
		}
	}
	return dataset.ValidateSign(req.Sign)
}

// VideoResult names the clip written by StoreVideo.
type VideoResult struct {
	Timestamp string
	Filename  string
}

// StoreVideo writes a raw clip under the sign's videos directory. Clips get
// no ledger rows.
func (p *Pipeline) StoreVideo(video []byte, sign string) (result *VideoResult, err error) {
	const op = "store video"
	reqID := uuid.New().String()
	var ts string

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindProcessing, Op: op, Sign: sign, Timestamp: ts, Err: fmt.Errorf("panic: %v", r)}
			result = nil
		}
		if err != nil {
			p.logFailure(reqID, err)
		}
	}()

	if len(video) == 0 || sign == "" {
		return nil, &Error{Kind: KindValidation, Op: op, Sign: sign, Err: ErrMissingField}
	}
	if err := dataset.ValidateSign(sign); err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Sign: sign, Err: err}
	}

	ts = p.config.Stamper.Next()
	if err := p.config.Dataset.Provision(sign, dataset.KindVideos); err != nil {
		return nil, &Error{Kind: KindStorage, Op: op, Sign: sign, Timestamp: ts, Err: err}
	}
	filename, err := p.config.Dataset.WriteVideo(sign, ts, video)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Op: op, Sign: sign, Timestamp: ts, Err: err}
	}

	log.Printf("[%s] stored video %s (%d bytes)", reqID, filename, len(video))
	p.config.Metrics.ObserveVideo()

	if p.config.Catalog != nil {
		err := p.config.Catalog.Videos().Create(&store.Video{
			Sign:      sign,
			Timestamp: ts,
			Filename:  filename,
			Size:      int64(len(video)),
		})
		if err != nil {
			log.Printf("[%s] catalog update failed for video %s: %v", reqID, filename, err)
		}
	}
	p.notify(Event{Type: EventVideo, Sign: sign, Timestamp: ts, Files: []string{filename}})

	return &VideoResult{Timestamp: ts, Filename: filename}, nil
}

func (p *Pipeline) notify(ev Event) {
	if p.config.Notifier != nil {
		p.config.Notifier.Notify(ev)
	}
}

// logFailure logs err. Validation failures are logged as rejections.
func (p *Pipeline) logFailure(reqID string, err error) {
	if KindOf(err) == KindValidation {
		log.Printf("[%s] rejected: %v", reqID, err)
		return
	}
	log.Printf("[%s] error: %v", reqID, err)
}
