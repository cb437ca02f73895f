package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"

	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/platform/ids"
	"client-docs-portal/internal/platform/logger"
	"client-docs-portal/internal/platform/metrics"
	"client-docs-portal/internal/ports/auth"
	"client-docs-portal/internal/ports/realtime"
)

// MaxTextLength limita un mensaje.
const MaxTextLength = 4000

// AuthorDirectory lo implementa users.Service.
type AuthorDirectory interface {
	EmailsByID(ctx context.Context, userIDs []string) (map[string]string, error)
}

type Service struct {
	repo    Repository
	bus     realtime.Bus
	authors AuthorDirectory
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Deps struct {
	Bus     realtime.Bus
	Authors AuthorDirectory
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

func NewService(repo Repository, deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:    repo,
		bus:     deps.Bus,
		authors: deps.Authors,
		log:     log.With(map[string]any{"component": "messages"}),
		metrics: deps.Metrics,
		now:     time.Now,
	}
}

// Post escribe como staff: is_client=false, user_id=sesión.
// Requiere can_send_messages (admin siempre). La pertenencia del cliente a la
// organización la valida el handler.
func (s *Service) Post(ctx context.Context, sess auth.Session, clientID, text string) (Message, error) {
	if !sess.IsStaff() {
		return Message{}, apperr.ErrForbidden
	}
	if !sess.Can(auth.PermSendMessages) {
		return Message{}, apperr.ErrForbidden
	}
	return s.append(ctx, clientID, sess.UserID, false, text)
}

// PostAsClient escribe como cliente: is_client=true, sin user_id. El llamador
// ya resolvió el token de portal.
func (s *Service) PostAsClient(ctx context.Context, clientID, text string) (Message, error) {
	return s.append(ctx, clientID, "", true, text)
}

func (s *Service) append(ctx context.Context, clientID, userID string, isClient bool, text string) (Message, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return Message{}, apperr.Validation("client id required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, apperr.Validation("message text required")
	}
	if len(text) > MaxTextLength {
		return Message{}, apperr.Validation(fmt.Sprintf("message longer than %d bytes", MaxTextLength))
	}

	now := s.now()
	m := Message{
		ID:        ids.NewULID(now),
		ClientID:  clientID,
		UserID:    userID,
		IsClient:  isClient,
		Text:      text,
		CreatedAt: now,
	}
	if err := s.repo.Append(ctx, m); err != nil {
		return Message{}, apperr.Persistence(err)
	}

	author := "staff"
	if isClient {
		author = "client"
	}
	s.metrics.MessagePosted(author)
	s.publish(ctx, m)
	return m, nil
}

// publish avisa a los suscriptores. El mensaje ya está guardado: si el bus
// falla se loguea y los clientes lo verán al releer.
func (s *Service) publish(ctx context.Context, m Message) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(m)
	if err != nil {
		s.log.Error("marshal message event", map[string]any{"message_id": m.ID, "err": err})
		return
	}
	for _, topic := range []string{realtime.TopicMessages, realtime.ClientTopic(m.ClientID)} {
		evt := realtime.Event{Topic: topic, ID: m.ID, ClientID: m.ClientID, At: m.CreatedAt, Payload: payload}
		if err := s.bus.Publish(ctx, evt); err != nil {
			s.log.Warn("publish message event failed", map[string]any{
				"message_id": m.ID,
				"topic":      topic,
				"err":        err,
			})
		}
	}
}

func (s *Service) List(ctx context.Context, clientID string) ([]Message, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, apperr.Validation("client id required")
	}
	items, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return items, nil
}

// ListWithAuthors agrega el email del autor a los mensajes del staff.
func (s *Service) ListWithAuthors(ctx context.Context, clientID string) ([]View, error) {
	items, err := s.List(ctx, clientID)
	if err != nil {
		return nil, err
	}

	emails := map[string]string{}
	if s.authors != nil {
		seen := map[string]struct{}{}
		userIDs := make([]string, 0)
		for _, m := range items {
			if m.UserID == "" {
				continue
			}
			if _, ok := seen[m.UserID]; ok {
				continue
			}
			seen[m.UserID] = struct{}{}
			userIDs = append(userIDs, m.UserID)
		}
		if len(userIDs) > 0 {
			emails, err = s.authors.EmailsByID(ctx, userIDs)
			if err != nil {
				return nil, apperr.Persistence(err)
			}
		}
	}

	out := make([]View, 0, len(items))
	for _, m := range items {
		out = append(out, View{Message: m, AuthorEmail: emails[m.UserID]})
	}
	return out, nil
}

func (s *Service) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, apperr.Validation("user id required")
	}
	n, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, apperr.Persistence(err)
	}
	return n, nil
}

// Stream devuelve los mensajes nuevos de un cliente a medida que se publican.
// Con clientID vacío escucha todos los clientes. La secuencia termina con ctx.
func (s *Service) Stream(ctx context.Context, clientID string) iter.Seq2[Message, error] {
	topic := realtime.TopicMessages
	if clientID != "" {
		topic = realtime.ClientTopic(clientID)
	}
	return func(yield func(Message, error) bool) {
		if s.bus == nil {
			yield(Message{}, fmt.Errorf("realtime bus not configured: %w", apperr.ErrPersistence))
			return
		}
		for evt, err := range realtime.Events(ctx, s.bus, topic) {
			if err != nil {
				yield(Message{}, apperr.Persistence(err))
				return
			}
			var m Message
			if err := json.Unmarshal(evt.Payload, &m); err != nil {
				s.log.Warn("skip malformed message event", map[string]any{"event_id": evt.ID, "err": err})
				continue
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}
