package cli

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/fatih/color"
	"github.com/microcosm-cc/bluemonday"
	"github.com/olekukonko/tablewriter"

	"github.com/cppla/miniblog/client"
)

// Themes understood by the palette.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemePlain = "plain"
)

var themes = []string{ThemeDark, ThemeLight, ThemePlain}

type palette struct {
	title  *color.Color
	author *color.Color
	accent *color.Color
	muted  *color.Color
	ok     *color.Color
	err    *color.Color
}

func paletteFor(theme string) palette {
	var p palette
	switch theme {
	case ThemeLight:
		p = palette{
			title:  color.New(color.Bold, color.FgBlue),
			author: color.New(color.FgMagenta),
			accent: color.New(color.FgCyan),
			muted:  color.New(color.FgBlack),
			ok:     color.New(color.FgGreen),
			err:    color.New(color.FgRed),
		}
	default:
		p = palette{
			title:  color.New(color.Bold, color.FgHiBlue),
			author: color.New(color.FgHiMagenta),
			accent: color.New(color.FgHiCyan),
			muted:  color.New(color.FgHiBlack),
			ok:     color.New(color.FgHiGreen),
			err:    color.New(color.FgHiRed),
		}
	}
	if theme == ThemePlain {
		for _, c := range []*color.Color{p.title, p.author, p.accent, p.muted, p.ok, p.err} {
			c.DisableColor()
		}
	}
	return p
}

var markup = bluemonday.StrictPolicy()

// plain removes markup and control characters from server text so it cannot
// drive the terminal. Entities are decoded before the control filter runs.
func plain(s string) string {
	return strings.TrimSpace(stripControl(html.UnescapeString(markup.Sanitize(s))))
}

// stripControl drops C0 and C1 control runes except newline and tab.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}

func renderPosts(w io.Writer, p palette, posts []client.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, p.muted.Sprint("No posts."))
		return
	}
	table := newTable(w, "#", "Title", "Author", "Category", "Likes", "Comments", "Created")
	for _, post := range posts {
		table.Append([]string{
			strconv.FormatInt(post.ID, 10),
			truncate(plain(post.Title), 40),
			plain(post.Author),
			plain(post.Category),
			strconv.Itoa(post.Likes),
			strconv.Itoa(len(post.Comments)),
			when(post.CreatedAt),
		})
	}
	table.Render()
}

func renderPost(w io.Writer, p palette, post client.Post) {
	fmt.Fprintln(w, p.title.Sprint(plain(post.Title)))
	fmt.Fprintf(w, "%s · %s · %s · ♥ %d\n",
		p.author.Sprint(plain(post.Author)),
		p.accent.Sprint(plain(post.Category)),
		p.muted.Sprint(when(post.CreatedAt)),
		post.Likes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, plain(post.Body))
	fmt.Fprintln(w)

	if len(post.Comments) == 0 {
		fmt.Fprintln(w, p.muted.Sprint("No comments yet."))
		return
	}
	fmt.Fprintln(w, p.accent.Sprintf("Comments (%d)", len(post.Comments)))
	for _, c := range post.Comments {
		fmt.Fprintf(w, "  %s %s: %s\n", p.muted.Sprint(when(c.CreatedAt)), p.author.Sprint(plain(c.Author)), plain(c.Text))
	}
}

func renderSidebar(w io.Writer, p palette, posts []client.Post) {
	fmt.Fprintln(w, p.title.Sprint("Categories"))
	cats := client.Categories(posts)
	if len(cats) == 0 {
		fmt.Fprintln(w, p.muted.Sprint("  none"))
	}
	for _, c := range cats {
		fmt.Fprintln(w, "  "+p.accent.Sprint(plain(c)))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, p.title.Sprint("Top authors"))
	authors := newTable(w, "Author", "Posts")
	for _, a := range client.TopAuthors(posts, client.TopAuthorsLimit) {
		authors.Append([]string{plain(a.Author), strconv.Itoa(a.Posts)})
	}
	authors.Render()
	fmt.Fprintln(w)

	fmt.Fprintln(w, p.title.Sprint("Latest comments"))
	comments := newTable(w, "Post", "Author", "Comment", "When")
	for _, ref := range client.LatestComments(posts, client.LatestCommentsLimit) {
		comments.Append([]string{
			truncate(plain(ref.PostTitle), 24),
			plain(ref.Comment.Author),
			truncate(plain(ref.Comment.Text), 40),
			when(ref.Comment.CreatedAt),
		})
	}
	comments.Render()
}

func renderUsers(w io.Writer, accounts []client.Account) {
	table := newTable(w, "#", "Username")
	for _, acc := range accounts {
		table.Append([]string{strconv.FormatInt(acc.ID, 10), plain(acc.Username)})
	}
	table.Render()
}
