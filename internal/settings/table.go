package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"taskbridge/internal/platform"
)

// activeRowKey holds the user's selection. Platform identifiers cannot
// start with an underscore, so it never collides with a settings row.
const activeRowKey = "_active"

type tableAPI interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// TableStore keeps settings in Azure Table Storage: one partition per user,
// one row per platform.
type TableStore struct {
	table tableAPI
}

type settingsEntity struct {
	aztables.Entity
	Settings string `json:"Settings"`
}

type activeEntity struct {
	aztables.Entity
	Platform string `json:"Platform"`
}

// OpenTable connects to tableName using connStr, creating the table if needed.
func OpenTable(ctx context.Context, connStr, tableName string) (*TableStore, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, err
	}
	if _, err := svc.CreateTable(ctx, tableName, nil); err != nil {
		var respErr *azcore.ResponseError
		if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusConflict {
			return nil, fmt.Errorf("create table %s: %w", tableName, err)
		}
	}
	return &TableStore{table: svc.NewClient(tableName)}, nil
}

// Close implements Store.
func (s *TableStore) Close() error { return nil }

// ActivePlatform implements platform.Resolver.
func (s *TableStore) ActivePlatform(ctx context.Context, userID string) (platform.ID, bool, error) {
	resp, err := s.table.GetEntity(ctx, userID, activeRowKey, nil)
	if isNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var ent activeEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return "", false, err
	}
	if ent.Platform == "" {
		return "", false, nil
	}
	return platform.ID(ent.Platform), true, nil
}

// Settings implements platform.Resolver.
func (s *TableStore) Settings(ctx context.Context, userID string, id platform.ID) (platform.Settings, bool, error) {
	key := string(platform.NormalizeID(string(id)))
	resp, err := s.table.GetEntity(ctx, userID, key, nil)
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out, err := decodeSettingsEntity(resp.Value)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt settings for %s: %w", key, err)
	}
	return out, true, nil
}

// Save implements Store.
func (s *TableStore) Save(ctx context.Context, userID string, id platform.ID, settings platform.Settings) error {
	key := string(platform.NormalizeID(string(id)))
	if key == "" {
		return fmt.Errorf("platform identifier required")
	}
	data, err := encodeSettingsEntity(userID, key, settings)
	if err != nil {
		return err
	}
	if _, err := s.table.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		return err
	}
	return s.setActive(ctx, userID, key)
}

// SetActive implements Store.
func (s *TableStore) SetActive(ctx context.Context, userID string, id platform.ID) error {
	key := string(platform.NormalizeID(string(id)))
	if _, err := s.table.GetEntity(ctx, userID, key, nil); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotStored, key)
		}
		return err
	}
	return s.setActive(ctx, userID, key)
}

// Delete implements Store.
func (s *TableStore) Delete(ctx context.Context, userID string, id platform.ID) error {
	key := string(platform.NormalizeID(string(id)))
	if _, err := s.table.DeleteEntity(ctx, userID, key, nil); err != nil && !isNotFound(err) {
		return err
	}

	active, ok, err := s.ActivePlatform(ctx, userID)
	if err != nil {
		return err
	}
	if ok && string(active) == key {
		if _, err := s.table.DeleteEntity(ctx, userID, activeRowKey, nil); err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}

// Platforms implements Store.
func (s *TableStore) Platforms(ctx context.Context, userID string) ([]platform.ID, error) {
	filter := "PartitionKey eq '" + escapeODataString(userID) + "'"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var ids []platform.ID
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent aztables.Entity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			if ent.RowKey == activeRowKey {
				continue
			}
			ids = append(ids, platform.ID(ent.RowKey))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *TableStore) setActive(ctx context.Context, userID, key string) error {
	data, err := json.Marshal(activeEntity{
		Entity:   aztables.Entity{PartitionKey: userID, RowKey: activeRowKey},
		Platform: key,
	})
	if err != nil {
		return err
	}
	_, err = s.table.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

func encodeSettingsEntity(userID, key string, settings platform.Settings) ([]byte, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	return json.Marshal(settingsEntity{
		Entity:   aztables.Entity{PartitionKey: userID, RowKey: key},
		Settings: string(raw),
	})
}

func decodeSettingsEntity(data []byte) (platform.Settings, error) {
	var ent settingsEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return nil, err
	}
	out := platform.Settings{}
	if ent.Settings == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(ent.Settings), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// escapeODataString doubles single quotes for use inside an OData literal.
func escapeODataString(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(out)
}
