package files

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"sales-analytics-backend/internal/audit"
	"sales-analytics-backend/internal/auth"
	"sales-analytics-backend/internal/ingest"
	"sales-analytics-backend/internal/logger"
	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

var allowedExtensions = map[string]bool{".xlsx": true, ".xls": true}

type UploadResponse struct {
	Success  bool                  `json:"success"`
	Complete bool                  `json:"complete"`
	Stats    models.IngestionStats `json:"stats"`
	Message  string                `json:"message"`
	File     string                `json:"file"`
	Error    string                `json:"error,omitempty"`
}

// POST /api/files/upload (multipart field "file")
func UploadHandler(p *ingest.Pipeline, maxFileSize int64, trail *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role := auth.CurrentUser(c)
		if role != models.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "Admin rights required")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
		}
		if !allowedExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
			return fiber.NewError(fiber.StatusBadRequest, "Only Excel files (.xlsx, .xls) are accepted")
		}
		if maxFileSize > 0 && fh.Size > maxFileSize {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge,
				fmt.Sprintf("File is larger than %d bytes", maxFileSize))
		}

		src, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Uploaded file cannot be opened")
		}
		defer src.Close()

		rows, err := ingest.ReadWorkbook(src)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "File cannot be read as an Excel workbook")
		}

		log := logger.WithFields(*logger.FromContext(c.UserContext()), map[string]interface{}{
			"file":    fh.Filename,
			"user_id": userID,
		})
		stats, err := p.Ingest(c.UserContext(), rows,
			ingest.FileMeta{Name: fh.Filename, Size: fh.Size},
			ingest.Uploader{ID: userID, Role: role})

		if stats.Total > 0 {
			username, _ := c.Locals(auth.CtxUsernameKey).(string)
			trail.Record(c.UserContext(), audit.LogOptions{
				UserID:      userID,
				UserName:    username,
				EntityType:  "uploaded_file",
				Action:      models.AuditActionUpload,
				Description: fh.Filename,
				Details:     stats,
			})
		}

		var (
			abortErr   *ingest.AbortError
			persistErr *ingest.PersistenceError
		)
		switch {
		case err == nil:
			return c.JSON(UploadResponse{
				Success:  true,
				Complete: true,
				Stats:    stats,
				Message:  stats.Summary(),
				File:     fh.Filename,
			})
		case errors.As(err, &abortErr):
			return c.JSON(UploadResponse{
				Success:  true,
				Complete: false,
				Stats:    stats,
				Message:  stats.Summary() + " Reason: " + abortErr.Reason + ".",
				File:     fh.Filename,
			})
		case errors.Is(err, ingest.ErrNoDataRows):
			return fiber.NewError(fiber.StatusBadRequest, "File contains no data rows")
		case errors.Is(err, ingest.ErrForbidden):
			return fiber.NewError(fiber.StatusForbidden, "Admin rights required")
		case errors.As(err, &persistErr):
			log.Error().Err(err).Msg("upload failed")
			return c.Status(fiber.StatusInternalServerError).JSON(UploadResponse{
				Stats:   stats,
				Message: fmt.Sprintf("Processing failed at row %d. Rows before it were saved.", persistErr.Row),
				File:    fh.Filename,
				Error:   "File processing failed",
			})
		default:
			log.Error().Err(err).Msg("upload failed")
			return fiber.NewError(fiber.StatusInternalServerError, "File processing failed")
		}
	}
}

type FileView struct {
	models.UploadedFile
	UploadedByName string `json:"uploadedByName"`
}

// GET /api/files
func ListHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		list, err := st.ListUploadedFiles(ctx)
		if err != nil {
			logger.FromContext(ctx).Error().Err(err).Msg("list files failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Files could not be loaded")
		}

		names := make(map[uint]string)
		out := make([]FileView, 0, len(list))
		for _, f := range list {
			name, ok := names[f.UploadedBy]
			if !ok {
				if u, err := st.GetUserByID(ctx, f.UploadedBy); err == nil {
					name = u.FullName
				}
				names[f.UploadedBy] = name
			}
			out = append(out, FileView{UploadedFile: f, UploadedByName: name})
		}
		return c.JSON(out)
	}
}
