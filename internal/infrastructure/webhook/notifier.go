package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/tracing"
)

const (
	// SignatureHeader carries "sha256=<hex hmac of the body>" when a secret is set
	SignatureHeader = "X-Backup-Signature"

	defaultTimeout = 10 * time.Second
	maxDrain       = 64 << 10
)

// Notifier posts backup notifications to a webhook. Any response from the
// destination counts as delivered; transport errors and timeouts do not.
type Notifier struct {
	url     string
	secret  []byte
	timeout time.Duration
	client  *http.Client
	logger  *zap.SugaredLogger
}

var _ ports.Notifier = (*Notifier)(nil)

func NewNotifier(url, secret string, timeout time.Duration, logger *zap.SugaredLogger) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{
		url:     url,
		secret:  []byte(secret),
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

func (n *Notifier) Configured() bool {
	return n.url != ""
}

func (n *Notifier) Notify(ctx context.Context, note domain.BackupNotification) (int, error) {
	if !n.Configured() {
		return 0, domain.ErrNotConfigured
	}

	ctx, span := tracing.TraceBackupTrigger(ctx, string(note.Mode), string(note.Snapshot.StatusLevel))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	body, err := json.Marshal(note)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "communityhub-backup/1")
	if len(n.secret) > 0 {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	start := time.Now()
	resp, err := n.client.Do(req)
	if err != nil {
		tracing.RecordError(ctx, err)
		return 0, fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	tracing.MeasureDuration(ctx, start)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logger.Warnw("Backup webhook answered with non-2xx status",
			"status", resp.StatusCode,
			"mode", note.Mode,
		)
	}
	return resp.StatusCode, nil
}

// Sign returns the hex HMAC-SHA256 of payload
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a "sha256=<hex>" header value against payload
func Verify(secret, payload []byte, header string) bool {
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	return hmac.Equal([]byte(header[len(prefix):]), []byte(Sign(secret, payload)))
}
