package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
	"github.com/UkralStul/mountainmerge-comments/internal/thread"
	"github.com/UkralStul/mountainmerge-comments/internal/view"
)

var errNotSubmitted = errors.New("comment was not submitted, see log for details")

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the comment thread of a note or deck",
		Flags: withTargetFlags(
			&cli.BoolFlag{Name: "html", Usage: "Render HTML instead of text"},
			&cli.StringFlag{Name: "reply-to", Usage: "Show the reply input under comment `ID`"},
		),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			tv := s.thread(c)
			if err := tv.Load(c.Context); err != nil {
				return err
			}
			if id := c.String("reply-to"); id != "" && !tv.OpenReply(id) {
				return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
			}

			if c.Bool("html") {
				snap := tv.Snapshot()
				return thread.RenderHTML(os.Stdout, snap.Forest, thread.State{
					ViewerID:   s.viewer,
					ReplyingTo: snap.ReplyingTo,
				})
			}

			panel := view.NewVotePanel(s.client, targetType(c), c.String("target"), s.log)
			if err := panel.Load(c.Context); err == nil {
				summary, _ := panel.Summary()
				mark := ""
				if summary.UserHasVoted {
					mark = " (voted)"
				}
				fmt.Printf("%d upvotes%s, %d comments\n\n", summary.Count, mark, tv.Snapshot().Total)
			}
			return tv.Render(os.Stdout)
		},
	}
}

func postCommand() *cli.Command {
	return &cli.Command{
		Name:  "post",
		Usage: "Post a top-level comment",
		Flags: withTargetFlags(
			&cli.StringFlag{Name: "text", Usage: "Comment text", Required: true},
		),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			tv := s.thread(c)
			if !tv.Post(c.Context, c.String("text")) {
				return errNotSubmitted
			}
			return tv.Render(os.Stdout)
		},
	}
}

func replyCommand() *cli.Command {
	return &cli.Command{
		Name:  "reply",
		Usage: "Reply to a comment",
		Flags: withTargetFlags(
			&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent comment `ID`", Required: true},
			&cli.StringFlag{Name: "text", Usage: "Reply text", Required: true},
		),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			tv := s.thread(c)
			if err := tv.Load(c.Context); err != nil {
				return err
			}
			parentID := c.String("parent")
			if !tv.OpenReply(parentID) {
				return fmt.Errorf("comment %s: %w", parentID, domain.ErrNotFound)
			}
			if !tv.Reply(c.Context, parentID, c.String("text")) {
				return errNotSubmitted
			}
			return tv.Render(os.Stdout)
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete one of your comments",
		Flags: withTargetFlags(
			&cli.StringFlag{Name: "id", Usage: "Comment `ID`", Required: true},
		),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			tv := s.thread(c)
			if err := tv.Load(c.Context); err != nil {
				return err
			}
			if err := tv.Delete(c.Context, c.String("id")); err != nil {
				return fmt.Errorf("delete %s: %w", c.String("id"), err)
			}
			return tv.Render(os.Stdout)
		},
	}
}

func voteCommand() *cli.Command {
	return &cli.Command{
		Name:  "vote",
		Usage: "Show or toggle your upvote",
		Flags: withTargetFlags(
			&cli.BoolFlag{Name: "toggle", Usage: "Add or remove your upvote"},
		),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			panel := view.NewVotePanel(s.client, targetType(c), c.String("target"), s.log)
			if c.Bool("toggle") {
				if !panel.Toggle(c.Context) {
					return errors.New("vote was not changed, see log for details")
				}
			} else if err := panel.Load(c.Context); err != nil {
				return err
			}
			summary, _ := panel.Summary()
			fmt.Printf("count: %d\nvoted: %t\n", summary.Count, summary.UserHasVoted)
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print the thread again every time it changes",
		Flags: withTargetFlags(),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			tv := s.thread(c)
			defer tv.Close()

			tv.OnChange(func() {
				fmt.Print("\033[H\033[2J")
				if err := tv.Render(os.Stdout); err != nil {
					s.log.Warn().Err(err).Msg("render failed")
				}
			})
			if err := tv.Load(ctx); err != nil {
				return err
			}
			return tv.Follow(ctx, s.client)
		},
	}
}
