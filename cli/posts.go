package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cppla/miniblog/client"
)

func (a *app) palette() palette {
	return paletteFor(a.state.Theme())
}

// load refreshes the post cache; a failed load is reported, not hidden.
func (a *app) load(cmd *cobra.Command) (client.Snapshot, error) {
	if _, err := a.state.Load(cmd.Context()); err != nil {
		return client.Snapshot{}, err
	}
	return a.state.Snapshot(), nil
}

func parsePostID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q", s)
	}
	return id, nil
}

func findPost(posts []client.Post, id int64) (client.Post, error) {
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}
	return client.Post{}, fmt.Errorf("post %d not found", id)
}

func (a *app) postsCmd() *cobra.Command {
	var f client.Filter
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch f.Sort {
			case client.SortNewest, client.SortOldest, client.SortPopular:
			default:
				return fmt.Errorf("unknown sort %q (newest, oldest, popular)", f.Sort)
			}
			a.state.SetFilter(f)
			snap, err := a.load(cmd)
			if err != nil {
				return err
			}
			renderPosts(cmd.OutOrStdout(), a.palette(), snap.Visible)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Category, "category", "c", "", "only posts in this category")
	cmd.Flags().StringVarP(&f.Search, "search", "s", "", "match title, body or author")
	cmd.Flags().StringVar(&f.Sort, "sort", client.SortNewest, "newest, oldest or popular")
	return cmd
}

func (a *app) postCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Show, create, edit or delete a post",
	}
	cmd.AddCommand(a.postShowCmd(), a.postCreateCmd(), a.postEditCmd(), a.postDeleteCmd())
	return cmd
}

func (a *app) postShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			snap, err := a.load(cmd)
			if err != nil {
				return err
			}
			post, err := findPost(snap.Posts, id)
			if err != nil {
				return err
			}
			renderPost(cmd.OutOrStdout(), a.palette(), post)
			return nil
		},
	}
}

func (a *app) postCreateCmd() *cobra.Command {
	var d client.Draft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a post as the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			post, err := a.state.CreatePost(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.palette().ok.Sprintf("✓ published post %d", post.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&d.Title, "title", "t", "", "post title")
	cmd.Flags().StringVarP(&d.Body, "body", "b", "", "post body")
	cmd.Flags().StringVarP(&d.Category, "category", "c", "", "category (default Geral)")
	return cmd
}

func (a *app) postEditCmd() *cobra.Command {
	var d client.Draft
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit one of your posts; omitted fields keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			snap, err := a.load(cmd)
			if err != nil {
				return err
			}
			current, err := findPost(snap.Posts, id)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("title") {
				d.Title = current.Title
			}
			if !flags.Changed("body") {
				d.Body = current.Body
			}
			if !flags.Changed("category") {
				d.Category = current.Category
			}
			if _, err := a.state.EditPost(cmd.Context(), id, d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.palette().ok.Sprintf("✓ updated post %d", id))
			return nil
		},
	}
	cmd.Flags().StringVarP(&d.Title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&d.Body, "body", "b", "", "new body")
	cmd.Flags().StringVarP(&d.Category, "category", "c", "", "new category")
	return cmd
}

func (a *app) postDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one of your posts",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			if err := a.state.DeletePost(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.palette().ok.Sprintf("✓ deleted post %d", id))
			return nil
		},
	}
}

func (a *app) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> <text...>",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			if err := a.state.Comment(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.palette().ok.Sprintf("✓ commented on post %d", id))
			return nil
		},
	}
}

func (a *app) likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <post-id>",
		Short: "Like a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			likes, err := a.state.Like(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.palette().ok.Sprintf("♥ post %d now has %d likes", id, likes))
			return nil
		},
	}
}

func (a *app) sidebarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sidebar",
		Short: "Show categories, top authors and latest comments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.load(cmd)
			if err != nil {
				return err
			}
			renderSidebar(cmd.OutOrStdout(), a.palette(), snap.Posts)
			return nil
		},
	}
}
