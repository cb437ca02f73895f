package notifications

import (
	"context"
	"iter"
	"strings"
	"time"

	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/ports/auth"
	"client-docs-portal/internal/ports/realtime"
)

// ClientDirectory lo implementa clients.Service: ids de clientes visibles.
type ClientDirectory interface {
	ClientIDs(ctx context.Context, sess auth.Session) ([]string, error)
}

type Service struct {
	repo    Repository
	clients ClientDirectory
	bus     realtime.Bus
	now     func() time.Time
}

func NewService(repo Repository, clients ClientDirectory, bus realtime.Bus) *Service {
	return &Service{
		repo:    repo,
		clients: clients,
		bus:     bus,
		now:     time.Now,
	}
}

// UnreadCounts: mensajes de clientes que el staff todavía no vio.
// Implementa clients.UnreadSource.
func (s *Service) UnreadCounts(ctx context.Context, sess auth.Session, clientIDs []string) (map[string]int, error) {
	if !sess.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}
	if len(clientIDs) == 0 {
		return map[string]int{}, nil
	}
	counts, err := s.repo.UnreadCounts(ctx, StaffViewer(sess.UserID), true, clientIDs)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return counts, nil
}

// StaffSummary recalcula desde cero el estado de todos los clientes de la organización.
func (s *Service) StaffSummary(ctx context.Context, sess auth.Session) (Summary, error) {
	if !sess.IsStaff() {
		return Summary{}, apperr.ErrForbidden
	}
	ids, err := s.clients.ClientIDs(ctx, sess)
	if err != nil {
		return Summary{}, err
	}
	counts, err := s.UnreadCounts(ctx, sess, ids)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Clients: make([]ClientUnread, 0, len(ids))}
	for _, id := range ids {
		cu := ClientUnread{ClientID: id, UnreadCount: counts[id], HasUnread: counts[id] > 0}
		sum.HasAny = sum.HasAny || cu.HasUnread
		sum.Clients = append(sum.Clients, cu)
	}
	return sum, nil
}

// ClientUnread: mensajes del staff que el portal todavía no vio.
func (s *Service) ClientUnread(ctx context.Context, token, clientID string) (ClientUnread, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(clientID) == "" {
		return ClientUnread{}, apperr.Validation("token and client id required")
	}
	counts, err := s.repo.UnreadCounts(ctx, PortalViewer(token), false, []string{clientID})
	if err != nil {
		return ClientUnread{}, apperr.Persistence(err)
	}
	n := counts[clientID]
	return ClientUnread{ClientID: clientID, HasUnread: n > 0, UnreadCount: n}, nil
}

// MarkRead avanza el marcador del viewer a ahora. Solo se llama ante un
// acuse explícito (POST), nunca al cargar una vista.
func (s *Service) MarkRead(ctx context.Context, viewer, clientID string) error {
	if strings.TrimSpace(viewer) == "" || strings.TrimSpace(clientID) == "" {
		return apperr.Validation("viewer and client id required")
	}
	if err := s.repo.MarkRead(ctx, viewer, clientID, s.now()); err != nil {
		return apperr.Persistence(err)
	}
	return nil
}

// WatchStaff emite el resumen inicial y uno nuevo, recalculado, por cada
// mensaje insertado. Cada range abre su propia suscripción.
func (s *Service) WatchStaff(ctx context.Context, sess auth.Session) iter.Seq2[Summary, error] {
	return watch(ctx, s.bus, realtime.TopicMessages, func() (Summary, error) {
		return s.StaffSummary(ctx, sess)
	})
}

// WatchClient es el equivalente para el portal, filtrado al canal del cliente.
func (s *Service) WatchClient(ctx context.Context, token, clientID string) iter.Seq2[ClientUnread, error] {
	return watch(ctx, s.bus, realtime.ClientTopic(clientID), func() (ClientUnread, error) {
		return s.ClientUnread(ctx, token, clientID)
	})
}

// watch se suscribe antes del primer cálculo: un insert que cae entre ambos
// llega como evento y provoca un recálculo en vez de perderse.
func watch[T any](ctx context.Context, bus realtime.Bus, topic string, compute func() (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if bus == nil {
			v, err := compute()
			yield(v, err)
			return
		}

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		events, err := bus.Subscribe(subCtx, topic)
		if err != nil {
			var zero T
			yield(zero, apperr.Persistence(err))
			return
		}

		v, err := compute()
		if !yield(v, err) || err != nil {
			return
		}
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				v, err := compute()
				if !yield(v, err) || err != nil {
					return
				}
			}
		}
	}
}
