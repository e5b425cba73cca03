package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	staffModel "clinic-booking/models/staff"
	"clinic-booking/services/audit"
	"clinic-booking/types"
)

// GetStaffByUUID retrieves a staff member by their UUID.
func GetStaffByUUID(db *gorm.DB, uuid string) (*staffModel.Staff, error) {
	if uuid == "" {
		return nil, errors.New("UUID cannot be empty")
	}

	var s staffModel.Staff
	if err := db.Where("uuid = ?", uuid).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("staff not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &s, nil
}

// ActorFromContext reads the acting staff identity out of the JWT claims set
// by the auth middleware. A missing identity is rejected here with the same
// fail-closed semantics as the event-level guard, just earlier.
func ActorFromContext(c *fiber.Ctx) (audit.StaffIdentity, error) {
	claims, ok := c.Locals("user").(map[string]interface{})
	if !ok {
		return audit.StaffIdentity{}, errors.New("invalid user claims")
	}

	actor := audit.StaffIdentity{}
	if name, ok := claims["name"].(string); ok {
		actor.Name = name
	}
	if uuid, ok := claims["uuid"].(string); ok {
		actor.ID = uuid
	}
	if actor.Name == "" && actor.ID == "" {
		return audit.StaffIdentity{}, errors.New("staff identity missing from token")
	}
	return actor, nil
}

// ValidatePhoneNumber accepts 9 to 14 digits with an optional leading +.
func ValidatePhoneNumber(phone string) bool {
	phone = strings.TrimSpace(phone)
	pattern := `^\+?[0-9]{9,14}$`
	re := regexp.MustCompile(pattern)
	return re.MatchString(phone)
}

// sanitizeRequestBody sanitizes request body for file uploads and large content
func sanitizeRequestBody(c *fiber.Ctx) string {
	contentType := c.Get("Content-Type")
	if strings.Contains(contentType, "multipart/form-data") {
		formData := make(map[string]interface{})

		if form, err := c.MultipartForm(); err == nil {
			for key, values := range form.Value {
				if len(values) > 0 {
					formData[key] = values[0]
				}
			}

			for key, files := range form.File {
				fileInfo := make([]map[string]interface{}, len(files))
				for i, file := range files {
					fileInfo[i] = map[string]interface{}{
						"filename": file.Filename,
						"size":     file.Size,
						"content":  "[FILE_CONTENT_REMOVED]",
					}
				}
				formData[key] = fileInfo
			}
		}

		if jsonBytes, err := json.Marshal(formData); err == nil {
			return string(jsonBytes)
		}
		return "[MULTIPART_FORM_DATA]"
	}

	body := string(c.Body())
	if len(body) > 1000 && (strings.Contains(body, "data:image/") ||
		strings.Contains(body, "base64") ||
		isLikelyBase64(body)) {
		return "[LARGE_REQUEST_BODY_WITH_POSSIBLE_FILE_CONTENT]"
	}

	return body
}

// isLikelyBase64 detects if content looks like base64
func isLikelyBase64(content string) bool {
	if len(content) < 100 {
		return false
	}

	base64Chars := 0
	for _, char := range content {
		if (char >= 'A' && char <= 'Z') ||
			(char >= 'a' && char <= 'z') ||
			(char >= '0' && char <= '9') ||
			char == '+' || char == '/' || char == '=' {
			base64Chars++
		}
	}

	return float64(base64Chars)/float64(len(content)) > 0.8
}

// CreateSanitizedLogEntry creates a deep copied and sanitized log entry for
// the async logger. File uploads and large bodies are replaced with markers.
func CreateSanitizedLogEntry(c *fiber.Ctx) types.LogEntry {
	method := string([]byte(c.Method()))
	url := string([]byte(c.OriginalURL()))
	requestBody := sanitizeRequestBody(c)
	responseBody := string(append([]byte(nil), c.Response().Body()...))

	requestHeaders := make([]byte, len(c.Request().Header.Header()))
	copy(requestHeaders, c.Request().Header.Header())

	responseHeaders := make([]byte, len(c.Response().Header.Header()))
	copy(responseHeaders, c.Response().Header.Header())

	return types.LogEntry{
		Method:          method,
		URL:             url,
		RequestBody:     requestBody,
		ResponseBody:    responseBody,
		RequestHeaders:  string(requestHeaders),
		ResponseHeaders: string(responseHeaders),
		StatusCode:      c.Response().StatusCode(),
		CreatedAt:       time.Now(),
	}
}
