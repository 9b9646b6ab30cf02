package workers

import (
	"context"
	"sort"
	"time"

	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/repositories"
	"github.com/cbodonnell/vibemod/pkg/repositories/models"
)

type SaveRoundResultWorker struct {
	repository          repositories.Repository
	saveRoundResultChan <-chan SaveRoundResultRequest
	timeout             time.Duration
}

type NewSaveRoundResultWorkerOptions struct {
	Repository          repositories.Repository
	SaveRoundResultChan <-chan SaveRoundResultRequest
	// Timeout bounds a single save. Zero means no timeout.
	Timeout time.Duration
}

type SaveRoundResultRequest struct {
	Room    string
	Round   uint32
	Mode    types.GameMode
	Reason  types.EndReason
	Scores  map[string]int
	EndedAt time.Time
}

// NewSaveRoundResultWorker creates a new SaveRoundResultWorker.
// The worker persists the results of ended rounds off the tick goroutine.
func NewSaveRoundResultWorker(opts NewSaveRoundResultWorkerOptions) *SaveRoundResultWorker {
	return &SaveRoundResultWorker{
		repository:          opts.Repository,
		saveRoundResultChan: opts.SaveRoundResultChan,
		timeout:             opts.Timeout,
	}
}

func (w *SaveRoundResultWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case saveRequest := <-w.saveRoundResultChan:
			w.saveRoundResult(ctx, saveRequest)
		}
	}
}

func (w *SaveRoundResultWorker) saveRoundResult(ctx context.Context, req SaveRoundResultRequest) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	result := RoundResultFromRequest(req)
	if err := w.repository.SaveRoundResult(ctx, result); err != nil {
		log.Error("Failed to save result of round %d in room %s: %v", req.Round, req.Room, err)
		return
	}
	log.Debug("Saved result %s of round %d in room %s", result.ID, req.Round, req.Room)
}

// RoundResultFromRequest converts a save request into its persisted form,
// with scores ordered by participant.
func RoundResultFromRequest(req SaveRoundResultRequest) *models.RoundResult {
	scores := make([]models.ParticipantScore, 0, len(req.Scores))
	for id, score := range req.Scores {
		scores = append(scores, models.ParticipantScore{ParticipantID: id, Score: score})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].ParticipantID < scores[j].ParticipantID })

	return &models.RoundResult{
		Room:    req.Room,
		Round:   req.Round,
		Mode:    req.Mode.String(),
		Reason:  string(req.Reason),
		EndedAt: req.EndedAt.UTC(),
		Scores:  scores,
	}
}
