package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	authorsvc "ebook-storefront/internal/service/author"
	booksvc "ebook-storefront/internal/service/book"
)

func (h *handlers) registerAuthor(c *gin.Context) {
	user, _ := currentUser(c)
	var in authorsvc.Input
	if !bindJSON(c, &in) {
		return
	}
	a, err := h.deps.AuthorSvc.Register(c.Request.Context(), user, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"author": toAuthor(*a, nil)})
}

func (h *handlers) updateAuthor(c *gin.Context) {
	user, _ := currentUser(c)
	var in authorsvc.Input
	if !bindJSON(c, &in) {
		return
	}
	a, err := h.deps.AuthorSvc.Update(c.Request.Context(), user, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"author": toAuthor(*a, nil)})
}

func (h *handlers) authorDetails(c *gin.Context) {
	a, books, err := h.deps.AuthorSvc.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"author": toAuthor(*a, books)})
}

// bookForm reads the multipart form used by book create and update. The
// price and fileInfo fields carry JSON objects.
func bookForm(c *gin.Context) (booksvc.Input, bool) {
	in := booksvc.Input{
		Title:           c.PostForm("title"),
		Description:     c.PostForm("description"),
		Language:        c.PostForm("language"),
		PublicationName: c.PostForm("publicationName"),
		Genre:           c.PostForm("genre"),
		PublishedAt:     c.PostForm("publishedAt"),
	}
	if err := json.Unmarshal([]byte(c.PostForm("price")), &in.Price); err != nil {
		badRequest(c, "invalid price")
		return in, false
	}
	if raw := c.PostForm("fileInfo"); raw != "" {
		var fi booksvc.FileInfo
		if err := json.Unmarshal([]byte(raw), &fi); err != nil {
			badRequest(c, "invalid file info")
			return in, false
		}
		in.File = &fi
	}
	if fh, err := c.FormFile("cover"); err == nil {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "invalid cover")
			return in, false
		}
		in.Cover = &booksvc.Upload{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Body: f}
	}
	return in, true
}

func (h *handlers) createBook(c *gin.Context) {
	user, _ := currentUser(c)
	in, ok := bookForm(c)
	if !ok {
		return
	}
	defer closeCover(in)
	saved, err := h.deps.BookSvc.Create(c.Request.Context(), user, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"book": toBook(*saved.Book), "fileUploadUrl": saved.UploadURL})
}

func (h *handlers) updateBook(c *gin.Context) {
	user, _ := currentUser(c)
	in, ok := bookForm(c)
	if !ok {
		return
	}
	defer closeCover(in)
	saved, err := h.deps.BookSvc.Update(c.Request.Context(), user, c.PostForm("slug"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"book": toBook(*saved.Book)}
	if saved.UploadURL != "" {
		resp["fileUploadUrl"] = saved.UploadURL
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) bookDetails(c *gin.Context) {
	b, err := h.deps.BookSvc.Details(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": toBook(*b)})
}

func (h *handlers) booksByGenre(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	books, err := h.deps.BookSvc.ByGenre(c.Request.Context(), c.Param("genre"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": toBooks(books)})
}

func (h *handlers) purchasedBooks(c *gin.Context) {
	user, _ := currentUser(c)
	books, err := h.deps.BookSvc.Purchased(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": toBooks(books)})
}

func (h *handlers) readBook(c *gin.Context) {
	user, _ := currentUser(c)
	u, err := h.deps.BookSvc.ReadURL(c.Request.Context(), user.ID, c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

func closeCover(in booksvc.Input) {
	if in.Cover == nil {
		return
	}
	if cl, ok := in.Cover.Body.(io.Closer); ok {
		_ = cl.Close()
	}
}
