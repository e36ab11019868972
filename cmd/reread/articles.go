package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"news-reread/internal/articles"
	"news-reread/internal/model"
)

var errReported = errors.New("operation failed")

var (
	listStatus   string
	listTag      int64
	listFavorite bool
	listWithTags bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved articles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var f articles.Filter
		if listStatus != "" {
			st, err := model.ParseStatus(listStatus)
			if err != nil {
				return err
			}
			f.Status = &st
		}
		if cmd.Flags().Changed("tag") {
			f.TagID = &listTag
		}
		if cmd.Flags().Changed("favorite") {
			f.IsFavorite = &listFavorite
		}

		c, err := runController(func(c *articles.Controller) {
			if listWithTags {
				c.LoadTags()
			}
			c.SetFilter(f)
		})
		if err != nil {
			return err
		}
		if err := printer.Articles(c.Articles().Load(), display()); err != nil {
			return err
		}
		if listWithTags {
			return printer.Tags(c.Tags().Load())
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseArticleID(args[0])
		if err != nil {
			return err
		}
		return runOnArticle(id, nil)
	},
}

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Save a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runController(func(c *articles.Controller) {
			c.CreateArticle(args[0])
		})
		return err
	},
}

var favCmd = &cobra.Command{
	Use:   "fav <id>",
	Short: "Toggle the favorite flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseArticleID(args[0])
		if err != nil {
			return err
		}
		return runOnArticle(id, func(c *articles.Controller) { c.ToggleFavorite(id) })
	},
}

var memoCmd = &cobra.Command{
	Use:   "memo <id> <text>",
	Short: "Replace the memo of an article",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseArticleID(args[0])
		if err != nil {
			return err
		}
		return runOnArticle(id, func(c *articles.Controller) { c.UpdateMemo(id, args[1]) })
	},
}

var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Record a review of an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseArticleID(args[0])
		if err != nil {
			return err
		}
		return runOnArticle(id, func(c *articles.Controller) { c.MarkAsRead(id) })
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseArticleID(args[0])
		if err != nil {
			return err
		}
		_, err = runController(func(c *articles.Controller) { c.DeleteArticle(id) })
		return err
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runController(func(c *articles.Controller) { c.LoadTags() })
		if err != nil {
			return err
		}
		return printer.Tags(c.Tags().Load())
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reload articles and tags, updating the local copy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runController(func(c *articles.Controller) { c.Refresh() })
		if err != nil {
			return err
		}
		printer.Success("%d articles, %d tags", len(c.Articles().Load()), len(c.Tags().Load()))
		return nil
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "List articles due for review",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		due, err := application.Repository.Reminders(cmd.Context())
		if err != nil {
			return err
		}
		return printer.Articles(due, display())
	},
}

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Pick a random article to reread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := application.Repository.RandomArticle(cmd.Context())
		if err != nil {
			return err
		}
		printer.Article(a, display())
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (unread, favorite, archived)")
	listCmd.Flags().Int64Var(&listTag, "tag", 0, "filter by tag id")
	listCmd.Flags().BoolVar(&listFavorite, "favorite", false, "filter by the favorite flag")
	listCmd.Flags().BoolVar(&listWithTags, "with-tags", false, "also print the tag list")

	rootCmd.AddCommand(listCmd, showCmd, addCmd, favCmd, memoCmd, readCmd, deleteCmd,
		tagsCmd, syncCmd, remindersCmd, randomCmd)
}

// runController runs each step on one controller, waiting for the step's
// operations and printing their messages before moving on. A step that
// reports an error ends the run.
func runController(steps ...func(c *articles.Controller)) (*articles.Controller, error) {
	c := articles.NewController(application.Repository, logger.Named("articles"))
	defer c.Close()

	for _, step := range steps {
		step(c)
		c.Wait()
		if drainMessages(c) {
			return c, errReported
		}
	}
	return c, nil
}

// drainMessages prints queued messages and reports whether any was an error.
func drainMessages(c *articles.Controller) bool {
	failed := false
	for {
		select {
		case m := <-c.Messages():
			if m.Kind == articles.MessageError {
				failed = true
				printer.Error("%s", m.Text)
			} else {
				printer.Success("%s", m.Text)
			}
		default:
			return failed
		}
	}
}

// runOnArticle opens id, applies fn to it and prints the result.
func runOnArticle(id int64, fn func(c *articles.Controller)) error {
	steps := []func(c *articles.Controller){func(c *articles.Controller) { c.LoadArticle(id) }}
	if fn != nil {
		steps = append(steps, fn)
	}
	c, err := runController(steps...)
	if err != nil {
		return err
	}

	a := c.Current().Load()
	if a == nil {
		logger.Debug("No article loaded", zap.Int64("article_id", id))
		return fmt.Errorf("article %d not found", id)
	}
	printer.Article(*a, display())
	return nil
}

func parseArticleID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid article id %q", raw)
	}
	return id, nil
}
