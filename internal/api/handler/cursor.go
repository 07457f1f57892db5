package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

// Cursors are base64("<unix nanos>|<id>") keyset positions

func decodeCursor(cursorStr string) (time.Time, string, error) {
	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return time.Time{}, "", err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 || decodedParts[1] == "" {
		return time.Time{}, "", fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(decodedParts[0], "%d", &createdAt); err != nil {
		return time.Time{}, "", fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return time.Unix(0, createdAt).UTC(), decodedParts[1], nil
}

func encodeCursor(createdAt time.Time, id string) string {
	cs := fmt.Sprintf("%d|%s", createdAt.UnixNano(), id)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}

func DecodeJobCursor(cursorStr string) (*domain.JobCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}
	createdAt, id, err := decodeCursor(cursorStr)
	if err != nil {
		return nil, err
	}
	return &domain.JobCursor{CreatedAt: createdAt, JobID: id}, nil
}

func EncodeJobCursor(cursor *domain.JobCursor) string {
	return encodeCursor(cursor.CreatedAt, cursor.JobID)
}

func DecodeNotificationCursor(cursorStr string) (*domain.NotificationCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}
	createdAt, id, err := decodeCursor(cursorStr)
	if err != nil {
		return nil, err
	}
	return &domain.NotificationCursor{CreatedAt: createdAt, ID: id}, nil
}

func EncodeNotificationCursor(cursor *domain.NotificationCursor) string {
	return encodeCursor(cursor.CreatedAt, cursor.ID)
}
