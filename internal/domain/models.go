package domain

import "time"

// TargetType - тип контента, к которому относятся комментарии и голоса.
type TargetType string

const (
	TargetNote TargetType = "note"
	TargetDeck TargetType = "deck"
)

// Valid сообщает, поддерживается ли тип контента.
func (t TargetType) Valid() bool {
	return t == TargetNote || t == TargetDeck
}

// MaxCommentLength - максимальная длина текста комментария в байтах.
const MaxCommentLength = 2000

// Comment представляет плоскую запись комментария к заметке или колоде.
// ParentID == nil означает комментарий верхнего уровня.
type Comment struct {
	ID         string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TargetID   string     `json:"target_id" gorm:"type:varchar(255);not null;index"`
	TargetType TargetType `json:"target_type" gorm:"type:varchar(16);not null;default:'note'"`
	ParentID   *string    `json:"parent_id,omitempty" gorm:"type:uuid;index"`
	UserID     string     `json:"user_id" gorm:"type:varchar(255);not null"`
	Text       string     `json:"text" gorm:"type:varchar(2000);not null"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null;default:now()"`
	Seq        int64      `json:"-" gorm:"autoIncrement;not null;index"` // порядок вставки
	Author     *Profile   `json:"author,omitempty" gorm:"-"` // только в выдаче списка
}

// HasParent сообщает, ссылается ли комментарий на родителя.
func (c *Comment) HasParent() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// Profile - публичные данные автора.
type Profile struct {
	ID        string `json:"id" gorm:"type:varchar(255);primary_key"`
	FirstName string `json:"first_name" gorm:"type:varchar(255)"`
	LastName  string `json:"last_name" gorm:"type:varchar(255)"`
}

// DisplayName возвращает имя для отображения.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

// Upvote - голос пользователя за заметку или колоду.
type Upvote struct {
	ID         string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID     string     `json:"user_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_upvote_owner"`
	TargetID   string     `json:"target_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_upvote_owner"`
	TargetType TargetType `json:"target_type" gorm:"type:varchar(16);not null;uniqueIndex:idx_upvote_owner"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null;default:now()"`
}

// VoteSummary - агрегированное состояние голосов для одного объекта.
type VoteSummary struct {
	Count        int  `json:"count"`
	UserHasVoted bool `json:"user_has_voted"`
}

// NewComment - тело запроса на создание комментария или ответа.
type NewComment struct {
	TargetID   string     `json:"target_id" validate:"required"`
	TargetType TargetType `json:"target_type,omitempty" validate:"omitempty,oneof=note deck"`
	Text       string     `json:"text" validate:"required,max=2000"`
	ParentID   *string    `json:"parent_id,omitempty"`
}

// ToggleVote - тело запроса на переключение голоса.
type ToggleVote struct {
	TargetID   string     `json:"target_id" validate:"required"`
	TargetType TargetType `json:"target_type" validate:"required,oneof=note deck"`
}

// EventKind - вид изменения в списке комментариев.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventDeleted EventKind = "deleted"
)

// CommentEvent сообщает подписчикам, что список комментариев объекта изменился.
type CommentEvent struct {
	Kind      EventKind `json:"kind"`
	TargetID  string    `json:"target_id"`
	CommentID string    `json:"comment_id"`
}
