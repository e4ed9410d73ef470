package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
	"github.com/ecocycle/ewaste-api/pkg/export"
	"github.com/ecocycle/ewaste-api/pkg/storage"
)

type earningsOverviewer interface {
	Overview(ctx context.Context, query dto.EarningsQuery, actor *models.JWTClaims) (*models.EarningsOverview, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// StatementConfig tunes statement exports.
type StatementConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// StatementFile is a validated download.
type StatementFile struct {
	Path        string
	Filename    string
	ContentType string
}

// StatementService renders earnings statements and hands out signed download links.
type StatementService struct {
	earnings earningsOverviewer
	storage  fileStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      StatementConfig
	now      func() time.Time
}

// NewStatementService constructs a StatementService.
func NewStatementService(earnings earningsOverviewer, store fileStorage, signer *storage.SignedURLSigner, cfg StatementConfig, logger *zap.Logger) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &StatementService{
		earnings: earnings,
		storage:  store,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Generate renders the actor's ledger (or the requested collector's, for
// admins) and stores it under a signed, expiring token.
func (s *StatementService) Generate(ctx context.Context, req dto.StatementRequest, actor *models.JWTClaims) (*dto.StatementResponse, error) {
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(req.Format)))
	if err != nil {
		return nil, appErrors.Field("format", "format must be csv or pdf")
	}
	query := dto.EarningsQuery{CollectorID: strings.TrimSpace(req.CollectorID)}
	if query.From, err = parseStatementDate("from", req.From); err != nil {
		return nil, err
	}
	if query.To, err = parseStatementDate("to", req.To); err != nil {
		return nil, err
	}

	overview, err := s.earnings.Overview(ctx, query, actor)
	if err != nil {
		return nil, err
	}
	subject := overview.Summary.CollectorID
	if subject == "" {
		subject = "all"
	}

	payload, err := export.RendererFor(format).Render(statementDataset(subject, overview))
	if err != nil {
		return nil, internalError(err, "failed to render statement")
	}
	filename := fmt.Sprintf("statements/%s/earnings_%s.%s", sanitizeFilename(subject), s.now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, internalError(err, "failed to store statement")
	}

	token, expiresAt, err := s.signer.Generate(subject, relPath)
	if err != nil {
		return nil, internalError(err, "failed to sign statement link")
	}
	s.logger.Info("earnings statement generated",
		zap.String("collector_id", subject),
		zap.String("format", string(format)),
		zap.Int("entries", len(overview.Earnings)),
	)

	return &dto.StatementResponse{
		URL:       s.cfg.APIPrefix + "/earnings/statements/download?token=" + token,
		Token:     token,
		Format:    string(format),
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a download token and returns the file it points at.
func (s *StatementService) Resolve(token string) (*StatementFile, error) {
	parsed, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrStatementUnavailable, "statement link has expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid statement token")
	}
	format := export.FormatCSV
	if strings.HasSuffix(parsed.Path, "."+string(export.FormatPDF)) {
		format = export.FormatPDF
	}
	name := parsed.Path
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return &StatementFile{Path: parsed.Path, Filename: name, ContentType: format.ContentType()}, nil
}

// Open returns a handle to the stored statement.
func (s *StatementService) Open(file *StatementFile) (*os.File, error) {
	handle, err := s.storage.Open(file.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrStatementUnavailable, "statement has been removed")
		}
		return nil, internalError(err, "failed to open statement")
	}
	return handle, nil
}

// Cleanup removes statements older than ttl (the configured TTL when ttl <= 0).
func (s *StatementService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired statements removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func statementDataset(subject string, overview *models.EarningsOverview) export.Dataset {
	headers := []string{"Request ID", "Collector ID", "Amount", "Status", "Paid At", "Recorded At"}
	rows := make([]map[string]string, 0, len(overview.Earnings))
	for _, earning := range overview.Earnings {
		paidAt := ""
		if earning.PaidAt != nil {
			paidAt = earning.PaidAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, map[string]string{
			"Request ID":   earning.CollectionRequestID,
			"Collector ID": earning.CollectorID,
			"Amount":       earning.Amount.StringFixed(2),
			"Status":       string(earning.Status),
			"Paid At":      paidAt,
			"Recorded At":  earning.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Title:   "Earnings Statement " + subject,
		Headers: headers,
		Rows:    rows,
		Summary: []export.SummaryLine{
			{Label: "Pending total", Value: overview.Summary.PendingTotal.StringFixed(2)},
			{Label: "Paid total", Value: overview.Summary.PaidTotal.StringFixed(2)},
			{Label: "Entries", Value: fmt.Sprintf("%d", overview.Summary.Count)},
		},
	}
}

func parseStatementDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(pickupDateLayout, raw)
	if err != nil {
		return nil, appErrors.Field(field, field+" must use the YYYY-MM-DD format")
	}
	return &parsed, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
