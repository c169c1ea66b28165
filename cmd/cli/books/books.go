package books

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crucial707/book-catalog/cmd/cli/client"
	"github.com/crucial707/book-catalog/cmd/cli/output"
	"github.com/crucial707/book-catalog/internal/models"
	"github.com/spf13/cobra"
)

// InitBooks attaches the books command tree to root.
func InitBooks(root *cobra.Command) {
	root.AddCommand(NewBooksCmd())
}

// ==========================
// Root "books" command
// ==========================
func NewBooksCmd() *cobra.Command {
	booksCmd := &cobra.Command{
		Use:   "books",
		Short: "Manage catalog books",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	listCmd.Flags().String("title", "", "Filter by title substring")
	listCmd.Flags().String("author", "", "Filter by author substring")
	listCmd.Flags().String("genre", "", "Filter by genre")
	listCmd.Flags().Int("year-from", 0, "Earliest publication year")
	listCmd.Flags().Int("year-to", 0, "Latest publication year")
	listCmd.Flags().Int("skip", 0, "Number of books to skip")
	listCmd.Flags().Int("limit", 0, "Maximum number of books to return")
	listCmd.Flags().String("sort-by", "", "Sort by title, author or published_year")
	listCmd.Flags().String("order", "", "Sort order: asc or desc")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a book",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a book",
		Args:  cobra.NoArgs,
		RunE:  runCreate,
	}

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a book",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpdate,
	}

	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().String("title", "", "Book title")
		c.Flags().String("author", "", "Author name")
		c.Flags().String("genre", "", "Genre")
		c.Flags().Int("year", 0, "Publication year")
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk import books from a .json or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	booksCmd.PersistentFlags().Bool("json", false, "Output raw JSON")
	booksCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd, importCmd)
	return booksCmd
}

// ==========================
// List / Get
// ==========================
func runList(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	for _, name := range []string{"title", "author", "genre", "sort-by", "order"} {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			q.Set(strings.ReplaceAll(name, "-", "_"), v)
		}
	}
	for _, name := range []string{"year-from", "year-to", "skip", "limit"} {
		if v, _ := cmd.Flags().GetInt(name); v != 0 {
			q.Set(strings.ReplaceAll(name, "-", "_"), strconv.Itoa(v))
		}
	}

	path := "/books"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var books []models.Book
	if err := client.New().JSON(cmd.Context(), http.MethodGet, path, nil, &books); err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return output.PrintJSON(cmd.OutOrStdout(), books)
	}
	if len(books) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No books found.")
		return nil
	}
	renderBooks(cmd.OutOrStdout(), books)
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	var book models.Book
	if err := client.New().JSON(cmd.Context(), http.MethodGet, "/books/"+id, nil, &book); err != nil {
		return err
	}
	return printBook(cmd, book)
}

// ==========================
// Create / Update / Delete
// ==========================
func runCreate(cmd *cobra.Command, args []string) error {
	c, err := client.Authenticated()
	if err != nil {
		return err
	}
	var book models.Book
	if err := c.JSON(cmd.Context(), http.MethodPost, "/books", bookInputFromFlags(cmd), &book); err != nil {
		return err
	}
	return printBook(cmd, book)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	c, err := client.Authenticated()
	if err != nil {
		return err
	}
	patch := bookPatchFromFlags(cmd)
	if patch.Empty() {
		return fmt.Errorf("nothing to update: set at least one of --title, --author, --genre, --year")
	}
	var book models.Book
	if err := c.JSON(cmd.Context(), http.MethodPut, "/books/"+id, patch, &book); err != nil {
		return err
	}
	return printBook(cmd, book)
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	c, err := client.Authenticated()
	if err != nil {
		return err
	}
	if err := c.Do(cmd.Context(), http.MethodDelete, "/books/"+id, nil, "", nil); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Book %s deleted.\n", id)
	return nil
}

// ==========================
// Bulk import
// ==========================
type importReport struct {
	Created []models.Book `json:"created"`
	Errors  []struct {
		Row   int    `json:"row"`
		Error string `json:"error"`
	} `json:"errors"`
}

func runImport(cmd *cobra.Command, args []string) error {
	c, err := client.Authenticated()
	if err != nil {
		return err
	}

	body, contentType, err := multipartFile(args[0])
	if err != nil {
		return err
	}

	var report importReport
	if err := c.Do(cmd.Context(), http.MethodPost, "/books/bulk", body, contentType, &report); err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return output.PrintJSON(cmd.OutOrStdout(), report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d book(s), %d row(s) failed.\n", len(report.Created), len(report.Errors))
	if len(report.Errors) > 0 {
		rows := make([][]any, 0, len(report.Errors))
		for _, e := range report.Errors {
			rows = append(rows, []any{e.Row, e.Error})
		}
		output.RenderTable(out, []string{"Row", "Error"}, rows)
	}
	return nil
}

// multipartFile wraps the file in a "file" form field with a content type taken
// from its extension.
func multipartFile(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var ct string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		ct = "application/json"
	case ".csv":
		ct = "text/csv"
	default:
		ct = "application/octet-stream"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path))},
		"Content-Type":        {ct},
	})
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// ==========================
// Helpers
// ==========================
func bookInputFromFlags(cmd *cobra.Command) models.BookInput {
	title, _ := cmd.Flags().GetString("title")
	author, _ := cmd.Flags().GetString("author")
	genre, _ := cmd.Flags().GetString("genre")
	year, _ := cmd.Flags().GetInt("year")
	return models.BookInput{
		Title:         title,
		Author:        author,
		Genre:         models.Genre(strings.ToLower(genre)),
		PublishedYear: year,
	}
}

// bookPatchFromFlags carries only the flags given on the command line.
func bookPatchFromFlags(cmd *cobra.Command) models.BookPatch {
	in := bookInputFromFlags(cmd)
	var p models.BookPatch
	if cmd.Flags().Changed("title") {
		p.Title = &in.Title
	}
	if cmd.Flags().Changed("author") {
		p.Author = &in.Author
	}
	if cmd.Flags().Changed("genre") {
		p.Genre = &in.Genre
	}
	if cmd.Flags().Changed("year") {
		p.PublishedYear = &in.PublishedYear
	}
	return p
}

func parseID(s string) (string, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return "", fmt.Errorf("invalid book id %q", s)
	}
	return strconv.FormatInt(id, 10), nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printBook(cmd *cobra.Command, book models.Book) error {
	if jsonOutput(cmd) {
		return output.PrintJSON(cmd.OutOrStdout(), book)
	}
	renderBooks(cmd.OutOrStdout(), []models.Book{book})
	return nil
}

func renderBooks(w io.Writer, books []models.Book) {
	rows := make([][]any, 0, len(books))
	for _, b := range books {
		rows = append(rows, []any{b.ID, b.Title, b.Author, b.Genre, b.PublishedYear})
	}
	output.RenderTable(w, []string{"ID", "Title", "Author", "Genre", "Year"}, rows)
}
