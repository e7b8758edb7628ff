package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/repository"
	"github.com/sakif/event-registration/internal/storage"
)

// DefaultMaxReceiptBytes is the upload limit when none is configured.
const DefaultMaxReceiptBytes = 10 << 20

// ReceiptService attaches payment receipts to participants.
type ReceiptService struct {
	repo     repository.ParticipantRepository
	store    storage.Store
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

func NewReceiptService(repo repository.ParticipantRepository, store storage.Store, maxBytes int64, logger *slog.Logger) *ReceiptService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReceiptBytes
	}
	return &ReceiptService{
		repo:     repo,
		store:    store,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// MaxBytes is the upload size limit.
func (s *ReceiptService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores r as the participant's receipt and returns the new file
// name. The previous receipt, if any, is removed afterwards.
func (s *ReceiptService) Upload(ctx context.Context, userID, originalName string, r io.Reader) (string, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("bill_%s_%d%s", p.UserID, s.now().UnixMilli(), receiptExt(originalName))

	// One byte over the limit is enough to know the upload is too big.
	limited := &io.LimitedReader{R: r, N: s.maxBytes + 1}
	if err := s.store.Save(ctx, name, limited); err != nil {
		return "", fmt.Errorf("saving receipt: %w", err)
	}
	if limited.N == 0 {
		s.removeQuietly(ctx, name)
		return "", apperror.TooLarge(s.maxBytes)
	}

	previous := p.BillFile
	p.BillFile = name
	if err := s.repo.Update(ctx, p); err != nil {
		s.removeQuietly(ctx, name)
		return "", fmt.Errorf("recording receipt: %w", err)
	}

	if previous != "" && previous != name {
		s.removeQuietly(ctx, previous)
	}

	s.logger.Info("receipt uploaded",
		slog.String("user_id", p.UserID),
		slog.String("bill_file", name),
	)
	return name, nil
}

// Receipt is an open receipt ready to be streamed to the client.
type Receipt struct {
	io.ReadCloser
	Name         string // stored object name
	DownloadName string // suggested file name for Content-Disposition
}

// Open returns the participant's receipt. It is NotFound both when none was
// uploaded and when the recorded file is gone.
func (s *ReceiptService) Open(ctx context.Context, userID string) (*Receipt, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.BillFile == "" {
		return nil, apperror.NotFound("receipt", userID)
	}

	rc, err := s.store.Open(ctx, p.BillFile)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			s.logger.Warn("recorded receipt is missing from storage",
				slog.String("user_id", p.UserID),
				slog.String("bill_file", p.BillFile),
			)
			return nil, apperror.NotFound("receipt", userID)
		}
		return nil, fmt.Errorf("opening receipt: %w", err)
	}

	base := slug.Make(p.UserName)
	if base == "" {
		base = p.UserID
	}
	return &Receipt{
		ReadCloser:   rc,
		Name:         p.BillFile,
		DownloadName: "receipt-" + base + filepath.Ext(p.BillFile),
	}, nil
}

func (s *ReceiptService) removeQuietly(ctx context.Context, name string) {
	err := s.store.Delete(ctx, name)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		s.logger.Warn("failed to delete receipt",
			slog.String("bill_file", name),
			slog.String("error", err.Error()),
		)
	}
}

// receiptExt keeps a short alphanumeric extension of the uploaded file name.
func receiptExt(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.ReplaceAll(originalName, `\`, "/"))))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
