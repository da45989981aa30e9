package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/utils"
	"communityhub/pkg/validation"
)

type ChatConfig struct {
	SendInterval  time.Duration
	MaxTextLength int
	MaxAuthor     int
	AnonymousName string
	UploadPrefix  string
}

func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		SendInterval:  1200 * time.Millisecond,
		MaxTextLength: 300,
		MaxAuthor:     30,
		AnonymousName: "Anonymous",
		UploadPrefix:  "/uploads/chat",
	}
}

// ChatConnection is the per-client send state
type ChatConnection struct {
	limiter *rate.Limiter
}

// chatViewer is a registered viewer. With a relay set, replayed holds the ids
// from its history that may still arrive from another instance.
type chatViewer struct {
	viewer   ports.Viewer
	replayed map[string]struct{}
}

// ChatService validates, persists and fans out chat messages. The service
// lock covers append plus broadcast and history replay plus registration,
// so every viewer sees the log in store order with no gaps or repeats.
type ChatService struct {
	mu      sync.Mutex
	repo    ports.ChatRepository
	viewers map[string]*chatViewer

	relay   ports.ChatRelay
	cfg     ChatConfig
	clock   utils.Clock
	metrics ports.Metrics
	logger  *zap.SugaredLogger
}

func NewChatService(
	repo ports.ChatRepository,
	cfg ChatConfig,
	clock utils.Clock,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *ChatService {
	def := DefaultChatConfig()
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = def.SendInterval
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = def.MaxTextLength
	}
	if cfg.MaxAuthor <= 0 {
		cfg.MaxAuthor = def.MaxAuthor
	}
	if cfg.AnonymousName == "" {
		cfg.AnonymousName = def.AnonymousName
	}
	if cfg.UploadPrefix == "" {
		cfg.UploadPrefix = def.UploadPrefix
	}
	if clock == nil {
		clock = utils.SystemClock
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &ChatService{
		repo:    repo,
		viewers: make(map[string]*chatViewer),
		cfg:     cfg,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// NewConnection returns send state allowing one message per SendInterval
func (s *ChatService) NewConnection() *ChatConnection {
	return &ChatConnection{
		limiter: rate.NewLimiter(rate.Every(s.cfg.SendInterval), 1),
	}
}

// Join replays the history to viewer and registers it for live messages
func (s *ChatService) Join(ctx context.Context, viewer ports.Viewer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.history(ctx)
	if !viewer.Deliver(ports.ChatEvent{Event: ports.EventHistory, Data: history}) {
		return fmt.Errorf("viewer %s rejected history", viewer.ID())
	}

	joined := &chatViewer{viewer: viewer}
	if s.relay != nil {
		joined.replayed = make(map[string]struct{}, len(history))
		for _, msg := range history {
			joined.replayed[msg.ID] = struct{}{}
		}
	}
	s.viewers[viewer.ID()] = joined
	s.metrics.SetChatViewers(len(s.viewers))
	s.logger.Debugw("Chat viewer joined", "viewer_id", viewer.ID(), "history", len(history))
	return nil
}

// Leave unregisters a viewer; it receives nothing further
func (s *ChatService) Leave(viewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.viewers[viewerID]; !ok {
		return
	}
	delete(s.viewers, viewerID)
	s.metrics.SetChatViewers(len(s.viewers))
	s.logger.Debugw("Chat viewer left", "viewer_id", viewerID)
}

// ViewerCount returns the number of registered viewers
func (s *ChatService) ViewerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

// History returns the stored log, or an empty one when it cannot be read
func (s *ChatService) History(ctx context.Context) []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history(ctx)
}

func (s *ChatService) history(ctx context.Context) []domain.ChatMessage {
	msgs, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warnw("Chat history unavailable", "error", err)
		return []domain.ChatMessage{}
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return msgs
}

// Send publishes req on behalf of conn. A throttled attempt changes nothing;
// any other attempt uses up the connection's slot, valid or not.
func (s *ChatService) Send(ctx context.Context, conn *ChatConnection, req domain.SendRequest) (domain.ChatMessage, error) {
	now := s.clock()
	if !conn.limiter.AllowN(now, 1) {
		s.metrics.ObserveChatRejection("rate_limited")
		return domain.ChatMessage{}, domain.ErrRateLimited
	}

	msg, err := s.buildMessage(req, now)
	if err != nil {
		s.metrics.ObserveChatRejection(rejectionReason(err))
		return domain.ChatMessage{}, err
	}

	s.mu.Lock()
	if err := s.repo.Append(ctx, msg); err != nil {
		s.mu.Unlock()
		s.metrics.ObserveChatRejection("storage")
		s.logger.Errorw("Failed to append chat message", "message_id", msg.ID, "error", err)
		return domain.ChatMessage{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	s.broadcast(ports.ChatEvent{Event: ports.EventNewMessage, Data: msg})
	relay := s.relay
	s.mu.Unlock()

	s.metrics.ObserveChatMessage(msg.Type)
	if relay != nil {
		if err := relay.Publish(ctx, msg); err != nil {
			s.logger.Warnw("Failed to relay chat message", "message_id", msg.ID, "error", err)
		}
	}
	return msg, nil
}

// SetRelay makes Send forward stored messages to other instances
func (s *ChatService) SetRelay(relay ports.ChatRelay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relay = relay
}

// Relayed fans out a message another instance already stored. Viewers that
// joined after the store and got the message in their history are skipped.
func (s *ChatService) Relayed(msg domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fanOut(ports.ChatEvent{Event: ports.EventNewMessage, Data: msg}, func(v *chatViewer) bool {
		if _, ok := v.replayed[msg.ID]; ok {
			delete(v.replayed, msg.ID)
			return true
		}
		return false
	})
}

// broadcast must be called with s.mu held
func (s *ChatService) broadcast(event ports.ChatEvent) {
	s.fanOut(event, nil)
}

func (s *ChatService) fanOut(event ports.ChatEvent, skip func(*chatViewer) bool) {
	for id, v := range s.viewers {
		if skip != nil && skip(v) {
			continue
		}
		if !v.viewer.Deliver(event) {
			delete(s.viewers, id)
			s.logger.Warnw("Dropping slow chat viewer", "viewer_id", id)
		}
	}
	s.metrics.SetChatViewers(len(s.viewers))
}

func (s *ChatService) buildMessage(req domain.SendRequest, now time.Time) (domain.ChatMessage, error) {
	author := utils.TruncateRunes(strings.TrimSpace(req.Author), s.cfg.MaxAuthor)
	if author == "" {
		author = s.cfg.AnonymousName
	}

	msgType := domain.MessageType(req.Type)
	if msgType == "" {
		msgType = domain.MessageText
	}

	var content string
	switch msgType {
	case domain.MessageText:
		content = strings.TrimSpace(req.Text)
		if content == "" {
			return domain.ChatMessage{}, fmt.Errorf("%w: text is empty", domain.ErrValidation)
		}
		if n := utf8.RuneCountInString(content); n > s.cfg.MaxTextLength {
			return domain.ChatMessage{}, fmt.Errorf("%w: text is too long (%d > %d characters)", domain.ErrValidation, n, s.cfg.MaxTextLength)
		}
	case domain.MessageImage, domain.MessageVideo:
		content = req.URL
		if err := validation.ValidatePathPrefix(content, s.cfg.UploadPrefix, "url"); err != nil {
			return domain.ChatMessage{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	case domain.MessageSticker:
		content = strings.TrimSpace(req.URL)
		if content == "" {
			return domain.ChatMessage{}, fmt.Errorf("%w: sticker url is empty", domain.ErrValidation)
		}
	default:
		return domain.ChatMessage{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, req.Type)
	}

	return domain.ChatMessage{
		ID:        utils.GenerateMessageID(),
		Timestamp: now,
		Author:    author,
		Type:      msgType,
		Content:   content,
	}, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnsupportedType):
		return "unsupported_type"
	default:
		return "validation"
	}
}
