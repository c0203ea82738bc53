// Package view держит состояние ветки комментариев одной страницы:
// загрузку, единственную открытую форму ответа, отправку и удаление.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
	"github.com/UkralStul/mountainmerge-comments/internal/thread"
)

// CommentAPI - операции бэкенда, нужные ветке.
type CommentAPI interface {
	ListComments(ctx context.Context, targetID string) ([]domain.Comment, error)
	CreateComment(ctx context.Context, input domain.NewComment) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// Watcher отдает поток изменений комментариев объекта.
type Watcher interface {
	Watch(ctx context.Context, targetID string) (<-chan domain.CommentEvent, error)
}

// Status - результат последней загрузки.
type Status int

const (
	StatusLoading Status = iota
	StatusEmpty
	StatusError
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Сообщения для состояний без дерева.
const (
	MsgLoading    = "Loading comments..."
	MsgEmpty      = "No comments yet"
	MsgLoadFailed = "Could not load comments"
)

// ErrStreamClosed возвращается из Follow, если поток оборвался сам.
var ErrStreamClosed = errors.New("comment stream closed")

// Snapshot - копия состояния ветки на момент вызова.
type Snapshot struct {
	Status     Status
	Message    string
	Comments   []domain.Comment
	Forest     []*thread.Node
	Total      int
	ReplyingTo string
	Submitting bool
}

// ThreadView - ветка комментариев одного объекта глазами одного пользователя.
type ThreadView struct {
	api        CommentAPI
	targetID   string
	targetType domain.TargetType
	viewerID   string
	log        zerolog.Logger

	mu         sync.Mutex
	gen        uint64
	closed     bool
	status     Status
	comments   []domain.Comment
	forest     []*thread.Node
	replyingTo string
	submitting bool
	onChange   func()
}

// New создает ветку. viewerID может быть пустым для анонимного просмотра,
// тогда удаление недоступно.
func New(api CommentAPI, targetType domain.TargetType, targetID, viewerID string, logger zerolog.Logger) *ThreadView {
	if targetType == "" {
		targetType = domain.TargetNote
	}
	return &ThreadView{
		api:        api,
		targetID:   targetID,
		targetType: targetType,
		viewerID:   viewerID,
		log: logger.With().
			Str("target_id", targetID).
			Str("viewer_id", viewerID).
			Logger(),
		status: StatusLoading,
		forest: []*thread.Node{},
	}
}

// Load заново запрашивает плоский список и пересобирает дерево целиком.
// Ответ, пришедший после более нового Load или после Close, отбрасывается.
func (v *ThreadView) Load(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	comments, err := v.api.ListComments(ctx, v.targetID)

	v.mu.Lock()
	if v.closed || gen != v.gen {
		v.mu.Unlock()
		v.log.Debug().Uint64("generation", gen).Msg("stale comment list discarded")
		return nil
	}
	if err != nil {
		// Прежнее дерево остается, чтобы не терять уже показанное
		v.status = StatusError
		v.mu.Unlock()
		v.log.Warn().Err(err).Str("op", "load").Msg("failed to load comments")
		return err
	}

	v.comments = comments
	v.forest = thread.Build(comments)
	if len(comments) == 0 {
		v.status = StatusEmpty
	} else {
		v.status = StatusReady
	}
	if v.replyingTo != "" && thread.Find(v.forest, v.replyingTo) == nil {
		v.replyingTo = ""
	}
	onChange := v.onChange
	v.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return nil
}

// OnChange задает функцию, вызываемую после каждой успешной пересборки.
func (v *ThreadView) OnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// OpenReply делает комментарий единственной целью ответа.
// Ранее открытая форма закрывается.
func (v *ThreadView) OpenReply(commentID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if thread.Find(v.forest, commentID) == nil {
		return false
	}
	v.replyingTo = commentID
	return true
}

func (v *ThreadView) CancelReply() {
	v.mu.Lock()
	v.replyingTo = ""
	v.mu.Unlock()
}

// Post публикует комментарий верхнего уровня.
func (v *ThreadView) Post(ctx context.Context, text string) bool {
	return v.submit(ctx, "post", "", text)
}

// Reply отвечает на комментарий parentID.
func (v *ThreadView) Reply(ctx context.Context, parentID, text string) bool {
	if parentID == "" {
		return false
	}
	return v.submit(ctx, "reply", parentID, text)
}

// submit возвращает true, если комментарий создан. Пустой текст и повторная
// отправка во время ожидания ответа игнорируются. Ошибка бэкенда
// логируется, состояние ветки при этом не меняется.
func (v *ThreadView) submit(ctx context.Context, op, parentID, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	v.mu.Lock()
	if v.closed || v.submitting {
		v.mu.Unlock()
		return false
	}
	v.submitting = true
	v.mu.Unlock()

	input := domain.NewComment{
		TargetID:   v.targetID,
		TargetType: v.targetType,
		Text:       text,
	}
	if parentID != "" {
		input.ParentID = &parentID
	}
	created, err := v.api.CreateComment(ctx, input)

	v.mu.Lock()
	v.submitting = false
	if err == nil && parentID != "" && v.replyingTo == parentID {
		v.replyingTo = ""
	}
	v.mu.Unlock()

	if err != nil {
		v.log.Warn().Err(err).Str("op", op).Str("parent_id", parentID).Msg("failed to submit comment")
		return false
	}

	// Тело ответа не обязательно: после успеха всегда перечитываем список
	if created != nil {
		v.log.Debug().Str("op", op).Str("comment_id", created.ID).Msg("comment submitted")
	}
	_ = v.Load(ctx)
	return true
}

// Delete удаляет комментарий, если зритель - его автор. Иначе возвращает
// domain.ErrForbidden, не обращаясь к бэкенду.
func (v *ThreadView) Delete(ctx context.Context, commentID string) error {
	v.mu.Lock()
	var target *domain.Comment
	for i := range v.comments {
		if v.comments[i].ID == commentID {
			target = &v.comments[i]
			break
		}
	}
	allowed := !v.closed && target != nil && thread.CanDelete(v.viewerID, target)
	v.mu.Unlock()

	if !allowed {
		return domain.ErrForbidden
	}

	if err := v.api.DeleteComment(ctx, commentID); err != nil {
		v.log.Warn().Err(err).Str("op", "delete").Str("comment_id", commentID).Msg("failed to delete comment")
		return nil
	}
	_ = v.Load(ctx)
	return nil
}

// Follow перезагружает ветку на каждое событие потока, пока ctx не отменен.
func (v *ThreadView) Follow(ctx context.Context, w Watcher) error {
	events, err := w.Watch(ctx, v.targetID)
	if err != nil {
		return fmt.Errorf("follow %s: %w", v.targetID, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrStreamClosed
			}
			v.log.Debug().
				Str("kind", string(event.Kind)).
				Str("comment_id", event.CommentID).
				Msg("comment event")
			_ = v.Load(ctx)
		}
	}
}

// Close помечает ветку покинутой: ответы на начатые запросы будут отброшены.
func (v *ThreadView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

func (v *ThreadView) state() thread.State {
	return thread.State{ViewerID: v.viewerID, ReplyingTo: v.replyingTo}
}

// Rows возвращает строки для отрисовки в порядке обхода.
func (v *ThreadView) Rows() []thread.Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return thread.Flatten(v.forest, v.state())
}

// Snapshot возвращает текущее состояние.
func (v *ThreadView) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	comments := make([]domain.Comment, len(v.comments))
	copy(comments, v.comments)
	return Snapshot{
		Status:     v.status,
		Message:    message(v.status),
		Comments:   comments,
		Forest:     v.forest,
		Total:      thread.Count(v.forest),
		ReplyingTo: v.replyingTo,
		Submitting: v.submitting,
	}
}

// Render печатает дерево либо сообщение о его отсутствии.
func (v *ThreadView) Render(w io.Writer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status != StatusReady && len(v.forest) == 0 {
		_, err := fmt.Fprintln(w, message(v.status))
		return err
	}
	if v.status == StatusError {
		if _, err := fmt.Fprintln(w, MsgLoadFailed); err != nil {
			return err
		}
	}
	return thread.RenderText(w, v.forest, v.state())
}

func message(s Status) string {
	switch s {
	case StatusLoading:
		return MsgLoading
	case StatusEmpty:
		return MsgEmpty
	case StatusError:
		return MsgLoadFailed
	default:
		return ""
	}
}
