package thread

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

// State - состояние отображения, которым владеет вызывающая сторона.
// ReplyingTo хранит id единственного комментария, под которым открыто
// поле ответа; пустая строка - поле закрыто.
type State struct {
	ViewerID   string
	ReplyingTo string
}

// Row - одна строка отрисованного треда.
type Row struct {
	Comment   domain.Comment
	Depth     int
	Replies   int
	Own       bool
	CanReply  bool
	CanDelete bool
	ReplyOpen bool
}

// AuthorName возвращает подпись автора строки.
func (r Row) AuthorName() string {
	if name := r.Comment.Author.DisplayName(); name != "" {
		return name
	}
	return "User"
}

// CanDelete сообщает, может ли пользователь viewerID удалить комментарий.
// Удалять разрешено только автору.
func CanDelete(viewerID string, c *domain.Comment) bool {
	return viewerID != "" && c != nil && viewerID == c.UserID
}

// Flatten рекурсивно обходит лес и возвращает строки в порядке отображения.
// Глубина не ограничена: отступ растёт линейно вместе с ней.
func Flatten(forest []*Node, st State) []Row {
	rows := make([]Row, 0, Count(forest))
	for _, n := range forest {
		rows = appendRows(rows, n, 0, st)
	}
	return rows
}

func appendRows(rows []Row, n *Node, depth int, st State) []Row {
	rows = append(rows, Row{
		Comment:   n.Comment,
		Depth:     depth,
		Replies:   len(n.Replies),
		Own:       st.ViewerID != "" && st.ViewerID == n.UserID,
		CanReply:  st.ViewerID != "",
		CanDelete: CanDelete(st.ViewerID, &n.Comment),
		ReplyOpen: st.ReplyingTo != "" && st.ReplyingTo == n.ID,
	})
	for _, r := range n.Replies {
		rows = appendRows(rows, r, depth+1, st)
	}
	return rows
}

// RenderText пишет тред в текстовом виде: два пробела отступа на уровень,
// текст комментария сохраняется построчно как есть.
func RenderText(w io.Writer, forest []*Node, st State) error {
	var b strings.Builder
	for _, row := range Flatten(forest, st) {
		indent := strings.Repeat("  ", row.Depth)

		author := row.AuthorName()
		if row.Own {
			author += " (you)"
		}
		fmt.Fprintf(&b, "%s%s · %s [%s]\n", indent, author, row.Comment.CreatedAt.Format(timeLayout), row.Comment.ID)

		for _, line := range strings.Split(row.Comment.Text, "\n") {
			b.WriteString(indent + "  " + line + "\n")
		}

		var actions []string
		if row.CanReply {
			actions = append(actions, "[reply]")
		}
		if row.CanDelete {
			actions = append(actions, "[delete]")
		}
		if len(actions) > 0 {
			b.WriteString(indent + "  " + strings.Join(actions, " ") + "\n")
		}
		if row.ReplyOpen {
			b.WriteString(indent + "  > replying...\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

var htmlThread = template.Must(template.New("thread").Parse(`<div class="comments">
{{- range .}}
<div class="comment{{if .Own}} own{{end}}" data-id="{{.Comment.ID}}" data-depth="{{.Depth}}">
<div class="meta">{{if .Own}}<span>{{.AuthorName}}</span>{{else}}<a href="/user/{{.Comment.UserID}}">{{.AuthorName}}</a>{{end}} · {{.Comment.CreatedAt.Format "2006-01-02 15:04"}}</div>
<div class="text" style="white-space: pre-wrap">{{.Comment.Text}}</div>
<div class="actions">
{{- if .CanReply}}<button name="reply" value="{{.Comment.ID}}">Reply</button>{{end}}
{{- if .CanDelete}}<button name="delete" value="{{.Comment.ID}}">Delete</button>{{end}}
</div>
{{- if .ReplyOpen}}
<form class="reply" method="post" action="/comments"><input type="hidden" name="parent_id" value="{{.Comment.ID}}"><textarea name="text"></textarea><button type="submit">Post reply</button></form>
{{- end}}
</div>
{{- end}}
</div>
`))

// RenderHTML пишет тред HTML-фрагментом. Кнопка удаления выводится только
// для комментариев зрителя.
func RenderHTML(w io.Writer, forest []*Node, st State) error {
	if err := htmlThread.Execute(w, Flatten(forest, st)); err != nil {
		return fmt.Errorf("failed to render thread: %w", err)
	}
	return nil
}
