// Package thread строит дерево обсуждения из плоского списка комментариев
// и отображает его.
package thread

import "github.com/UkralStul/mountainmerge-comments/internal/domain"

// Node - комментарий вместе с упорядоченными ответами на него.
// Узлы живут только в памяти и пересобираются после каждой загрузки.
type Node struct {
	domain.Comment
	Replies []*Node `json:"replies"`
}

// Build превращает плоский список комментариев в лес тредов.
//
// Порядок входного списка определяет порядок корней и порядок ответов
// у каждого родителя. Комментарий, чей родитель отсутствует в списке или
// указывает сам на себя, становится корнем. Каждый входной комментарий
// попадает в результат ровно один раз.
func Build(comments []domain.Comment) []*Node {
	nodes := make([]*Node, len(comments))
	byID := make(map[string]*Node, len(comments))
	for i := range comments {
		n := &Node{Comment: comments[i], Replies: []*Node{}}
		nodes[i] = n
		// При дублях id ссылки ведут на первый узел
		if _, ok := byID[n.ID]; !ok {
			byID[n.ID] = n
		}
	}

	roots := make([]*Node, 0)
	parents := make(map[*Node]*Node)
	for _, n := range nodes {
		parent := resolveParent(byID, n)
		if parent == nil {
			roots = append(roots, n)
			continue
		}
		parent.Replies = append(parent.Replies, n)
		parents[n] = parent
	}

	if len(parents) == 0 {
		return roots
	}
	return breakCycles(nodes, roots, parents)
}

func resolveParent(byID map[string]*Node, n *Node) *Node {
	if !n.HasParent() || *n.ParentID == n.ID {
		return nil
	}
	parent, ok := byID[*n.ParentID]
	if !ok || parent == n {
		return nil
	}
	return parent
}

// breakCycles находит узлы, недостижимые из корней (они лежат на цикле
// A->B->A или висят под ним), и разрывает каждый цикл, делая корнем
// первый найденный узел цикла.
func breakCycles(nodes, roots []*Node, parents map[*Node]*Node) []*Node {
	reached := make(map[*Node]bool, len(nodes))
	for _, r := range roots {
		markSubtree(r, reached)
	}
	if len(reached) == len(nodes) {
		return roots
	}

	for _, n := range nodes {
		if reached[n] {
			continue
		}
		seen := make(map[*Node]bool)
		cur := n
		for !seen[cur] {
			seen[cur] = true
			cur = parents[cur]
		}
		detach(parents[cur], cur)
		delete(parents, cur)
		roots = append(roots, cur)
		markSubtree(cur, reached)
	}
	return roots
}

func markSubtree(root *Node, reached map[*Node]bool) {
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[n] {
			continue
		}
		reached[n] = true
		stack = append(stack, n.Replies...)
	}
}

func detach(parent, child *Node) {
	for i, r := range parent.Replies {
		if r == child {
			parent.Replies = append(parent.Replies[:i], parent.Replies[i+1:]...)
			return
		}
	}
}

// Count возвращает число узлов в лесу, включая все вложенные ответы.
func Count(forest []*Node) int {
	total := 0
	for _, n := range forest {
		total += 1 + Count(n.Replies)
	}
	return total
}

// Walk обходит лес в прямом порядке. Если fn возвращает false,
// ответы текущего узла пропускаются.
func Walk(forest []*Node, fn func(n *Node, depth int) bool) {
	walk(forest, 0, fn)
}

func walk(forest []*Node, depth int, fn func(n *Node, depth int) bool) {
	for _, n := range forest {
		if fn(n, depth) {
			walk(n.Replies, depth+1, fn)
		}
	}
}

// Find ищет узел по id.
func Find(forest []*Node, id string) *Node {
	var found *Node
	Walk(forest, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}
