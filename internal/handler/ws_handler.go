package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/activitylist"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/middleware"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/service"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/websocket"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/jwt"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	manager   *websocket.Manager
	sessions  *WebSocketMessageHandler
	jwtSecret string
	upgrader  ws.Upgrader
	logger    *zap.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, sessions *WebSocketMessageHandler, jwtSecret string, allowedOrigins []string, bufferSize int, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// originChecker accepts requests without an Origin header and those from an
// allowed origin. "*" allows every origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// HandleConnection authenticates with a token from the query string or the
// Authorization header, then upgrades.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		response.Unauthorized(w, "Missing authorization token")
		return
	}

	claims, err := jwt.ValidateToken(token, h.jwtSecret)
	if err != nil {
		h.logger.Debug("websocket token rejected", zap.Error(err))
		response.Unauthorized(w, "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(uuid.New().String(), claims.UserID, conn, h.manager)
	h.sessions.open(client)

	if err := h.manager.Register(client); err != nil {
		h.sessions.ClientClosed(client)
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.ClosePolicyViolation, err.Error()), deadline)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// session is the live state of one connection: at most one attached list.
type session struct {
	store *activitylist.Store

	mu   sync.Mutex
	trip *domain.Itinerary
}

func (s *session) setTrip(it *domain.Itinerary) {
	s.mu.Lock()
	s.trip = it
	s.mu.Unlock()
}

// date is the calendar date of key's day, or "" when it is unknown.
func (s *session) date(key activitylist.Key) string {
	s.mu.Lock()
	it := s.trip
	s.mu.Unlock()
	if it == nil || it.ID != key.ItineraryID {
		return ""
	}
	d, err := it.DateOfDay(key.Day)
	if err != nil {
		return ""
	}
	return d.Format("2006-01-02")
}

// WebSocketMessageHandler runs the activity list sessions of every
// connection. Messages of one client arrive one at a time.
type WebSocketMessageHandler struct {
	client      docstore.Client
	itineraries *service.ItineraryService
	policy      activitylist.SortPolicy
	timeout     time.Duration
	validate    *validator.Validate
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewWebSocketMessageHandler(client docstore.Client, itineraries *service.ItineraryService, policy activitylist.SortPolicy, timeout time.Duration, logger *zap.Logger) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{
		client:      client,
		itineraries: itineraries,
		policy:      policy,
		timeout:     timeout,
		validate:    newValidator(),
		logger:      logger,
		sessions:    make(map[string]*session),
	}
}

func (h *WebSocketMessageHandler) open(c *websocket.Client) {
	sess := &session{}
	sess.store = activitylist.NewStore(h.client, activitylist.Options{
		Policy: h.policy,
		Logger: h.logger.With(zap.String("client_id", c.ID)),
		OnChange: func(key activitylist.Key, list []domain.Activity) {
			h.push(c, websocket.TypeSnapshot, websocket.SnapshotPayload{
				ItineraryID: key.ItineraryID,
				Day:         key.Day,
				Date:        sess.date(key),
				Activities:  list,
			})
		},
		OnError: func(err error) {
			h.push(c, websocket.TypeError, websocket.ErrorPayload{
				Op:      websocket.TypeAttach,
				Code:    "subscription_failed",
				Message: err.Error(),
			})
		},
	})

	h.mu.Lock()
	h.sessions[c.ID] = sess
	h.mu.Unlock()
}

func (h *WebSocketMessageHandler) session(c *websocket.Client) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[c.ID]
}

// ClientClosed detaches the client's list.
func (h *WebSocketMessageHandler) ClientClosed(c *websocket.Client) {
	h.mu.Lock()
	s := h.sessions[c.ID]
	delete(h.sessions, c.ID)
	h.mu.Unlock()

	if s != nil {
		s.store.Detach()
	}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(ctx context.Context, c *websocket.Client, msg *websocket.Message) error {
	s := h.session(c)
	if s == nil {
		return nil
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	var (
		activityID string
		err        error
	)
	switch msg.Type {
	case websocket.TypePing:
		return h.reply(c, msg, websocket.TypePong, nil)
	case websocket.TypeAttach:
		err = h.attach(ctx, c, s, msg)
		var serr *activitylist.SubscriptionError
		if errors.As(err, &serr) {
			// OnError already told the client.
			return err
		}
	case websocket.TypeDetach:
		s.store.Detach()
	case websocket.TypeAdd:
		var p websocket.AddPayload
		if err = h.payload(msg, &p); err == nil {
			activityID, err = s.store.Add(ctx, p.Activity)
		}
	case websocket.TypeUpdate:
		var p websocket.UpdatePayload
		if err = h.payload(msg, &p); err == nil {
			activityID = p.ActivityID
			err = s.store.Update(ctx, p.ActivityID, p.Patch)
		}
	case websocket.TypeRemove:
		var p websocket.RemovePayload
		if err = h.payload(msg, &p); err == nil {
			activityID = p.ActivityID
			err = s.store.Remove(ctx, p.ActivityID)
		}
	case websocket.TypeReorder:
		var p websocket.ReorderPayload
		if err = h.payload(msg, &p); err == nil {
			err = s.store.Reorder(ctx, p.Source, p.Destination)
		}
	case websocket.TypeMove:
		var p websocket.MovePayload
		if err = h.payload(msg, &p); err == nil {
			activityID = p.ActivityID
			err = h.move(ctx, c, s, p)
		}
	default:
		return h.reply(c, msg, websocket.TypeError, websocket.ErrorPayload{
			Op:      msg.Type,
			Code:    response.CodeBadRequest,
			Message: "unknown message type",
		})
	}

	if err != nil {
		if rerr := h.reply(c, msg, websocket.TypeError, errorPayload(msg.Type, err)); rerr != nil {
			return rerr
		}
		return err
	}
	return h.reply(c, msg, websocket.TypeAck, websocket.AckPayload{Op: msg.Type, ActivityID: activityID})
}

func (h *WebSocketMessageHandler) attach(ctx context.Context, c *websocket.Client, s *session, msg *websocket.Message) error {
	var p websocket.AttachPayload
	if err := h.payload(msg, &p); err != nil {
		return err
	}
	it, err := h.itineraries.Authorize(ctx, c.UserID, p.ItineraryID, p.Day)
	if err != nil {
		return err
	}
	s.setTrip(it)
	return s.store.Attach(ctx, activitylist.Key{UserID: c.UserID, ItineraryID: p.ItineraryID, Day: p.Day})
}

// move checks the target day against the itinerary before moving.
func (h *WebSocketMessageHandler) move(ctx context.Context, c *websocket.Client, s *session, p websocket.MovePayload) error {
	key, attached := s.store.Key()
	if !attached {
		return activitylist.ErrNotAttached
	}
	if _, err := h.itineraries.Authorize(ctx, c.UserID, key.ItineraryID, p.Day); err != nil {
		return err
	}
	return s.store.Move(ctx, p.ActivityID, p.Day)
}

func (h *WebSocketMessageHandler) payload(msg *websocket.Message, dst interface{}) error {
	if err := msg.UnmarshalPayload(dst); err != nil {
		return &service.ValidationError{Field: "payload", Message: "malformed"}
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &service.ValidationError{Field: verrs[0].Field(), Message: "failed on " + verrs[0].Tag()}
		}
		return &service.ValidationError{Field: "payload", Message: err.Error()}
	}
	return nil
}

func (h *WebSocketMessageHandler) reply(c *websocket.Client, msg *websocket.Message, t websocket.MessageType, payload interface{}) error {
	out, err := msg.Reply(t, payload)
	if err != nil {
		return err
	}
	return c.SendMessage(out)
}

func (h *WebSocketMessageHandler) push(c *websocket.Client, t websocket.MessageType, payload interface{}) {
	out, err := websocket.NewMessage(t, payload)
	if err != nil {
		h.logger.Error("encoding push failed", zap.String("type", string(t)), zap.Error(err))
		return
	}
	c.SendMessage(out)
}

// errorPayload maps an operation error to the code sent to the client.
func errorPayload(op websocket.MessageType, err error) websocket.ErrorPayload {
	p := websocket.ErrorPayload{Op: op, Message: err.Error()}

	var verr *service.ValidationError
	var rerr *activitylist.RemoteWriteError
	var serr *activitylist.SubscriptionError
	switch {
	case errors.As(err, &verr):
		p.Code = response.CodeValidation
		p.Field = verr.Field
	case errors.As(err, &rerr):
		p.Code = "remote_write_failed"
		p.RolledBack = rerr.RolledBack
	case errors.As(err, &serr):
		p.Code = "subscription_failed"
	case errors.Is(err, activitylist.ErrNotAttached):
		p.Code = "not_attached"
	case errors.Is(err, activitylist.ErrNotLoaded):
		p.Code = "not_loaded"
	case errors.Is(err, activitylist.ErrIndexOutOfRange):
		p.Code = response.CodeBadRequest
	case errors.Is(err, activitylist.ErrUnknownActivity), errors.Is(err, service.ErrNotFound):
		p.Code = response.CodeNotFound
	case errors.Is(err, service.ErrForbidden):
		p.Code = response.CodeForbidden
	case errors.Is(err, docstore.ErrMissingIndex):
		p.Code = response.CodeUnavailable
	default:
		p.Code = response.CodeInternal
		p.Message = "internal error"
	}
	return p
}
