package soapstone

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/hanabira/hanabira/backend/go-services/internal/economy"
	"github.com/hanabira/hanabira/backend/go-services/pkg/logger"
)

// AppraisalAward is the fixed petal grant an author receives per appraisal,
// subject to the SOAPSTONE_APPRAISAL daily cap.
const AppraisalAward = 10

// Service composes, lists and appraises messages. Appraisals feed the petal
// economy: the award goes through the economy core like any other earn.
type Service struct {
	repo    Repository
	economy *economy.Service
}

func NewService(repo Repository, eco *economy.Service) *Service {
	return &Service{repo: repo, economy: eco}
}

// Leave validates the phrase selection and stores a new message.
func (s *Service) Leave(ctx context.Context, authorID int64, authorName, zone, template, conjunction, template2 string) (*Message, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return nil, ErrInvalidZone
	}
	if !templates[template] {
		return nil, ErrInvalidTemplate
	}
	if conjunction != "" || template2 != "" {
		if !conjunctions[conjunction] || !templates[template2] {
			return nil, ErrInvalidTemplate
		}
	}

	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	m := &Message{
		ID:          "msg_" + hex.EncodeToString(b),
		AuthorID:    authorID,
		AuthorName:  authorName,
		Zone:        zone,
		Template:    template,
		Conjunction: conjunction,
		Template2:   template2,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns recent messages for a zone, newest first.
func (s *Service) List(ctx context.Context, zone string, limit int) ([]*Message, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return nil, ErrInvalidZone
	}
	return s.repo.ListByZone(ctx, zone, limit)
}

// Appraise increments the message's appraisal count and grants the author the
// fixed petal award. A capped-out author keeps the appraisal; only the petals
// are withheld.
func (s *Service) Appraise(ctx context.Context, id string, raterID int64) (*Message, error) {
	m, err := s.repo.Appraise(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMessageNotFound
	}

	// self-appraisal counts for the message but never pays out
	if m.AuthorID != raterID {
		_, err := s.economy.Earn(ctx, m.AuthorID, economy.CurrencyPetals, AppraisalAward, "SOAPSTONE_APPRAISAL", map[string]any{
			"message_id": m.ID,
			"rater_id":   raterID,
		})
		if err != nil && !errors.Is(err, economy.ErrDailyCapExceeded) {
			logger.Warnf("appraisal award failed (message=%s author=%d): %v", m.ID, m.AuthorID, err)
		}
	}
	return m, nil
}
