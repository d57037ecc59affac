package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/0xYujan/Online-Code-IDE/internal/models"
)

// ProjectClient talks to the external project CRUD service over HTTP, for
// deployments where that service owns snapshots and version history.
type ProjectClient struct {
	baseURL string
	client  *http.Client
}

func NewProjectClient(baseURL string) *ProjectClient {
	return &ProjectClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (pc *ProjectClient) LoadSnapshot(ctx context.Context, roomID string) (*models.Documents, error) {
	url := fmt.Sprintf("%s/api/v1/projects/%s/snapshot", pc.baseURL, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := pc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call project service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("project service returned status %d", resp.StatusCode)
	}

	var docs models.Documents
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot response: %w", err)
	}
	return &docs, nil
}

func (pc *ProjectClient) AppendVersion(ctx context.Context, roomID, userID string, surface models.Surface, content string) error {
	entry := models.VersionEntry{
		UserID:    userID,
		Surface:   surface,
		Content:   content,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/projects/%s/versions", pc.baseURL, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call project service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("project service returned status %d", resp.StatusCode)
	}
	return nil
}

func (pc *ProjectClient) Versions(ctx context.Context, roomID string) ([]models.VersionEntry, error) {
	url := fmt.Sprintf("%s/api/v1/projects/%s/versions", pc.baseURL, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := pc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call project service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("project service returned status %d", resp.StatusCode)
	}

	var entries []models.VersionEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode versions response: %w", err)
	}
	return entries, nil
}
