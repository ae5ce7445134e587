// Where: internal/cache/azure/table.go
// What: Azure Table Storage tag store.
// Why: Tag rows are keyed PartitionKey={build}/{tag}, RowKey={build}/{path}.
package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/poruru-code/opennext-azure/internal/cache"
	"go.uber.org/multierr"
)

const (
	propTag           = "tag"
	propPath          = "path"
	propRevalidatedAt = "revalidatedAt"
)

// TableStore implements cache.TagStore on one table.
type TableStore struct {
	client *aztables.Client
}

// NewTableStore binds a service client to a table.
func NewTableStore(service *aztables.ServiceClient, table string) *TableStore {
	return &TableStore{client: service.NewClient(table)}
}

// QueryByTag lists rows in the tag's partition.
func (s *TableStore) QueryByTag(ctx context.Context, tag string) ([]cache.TagItem, error) {
	return s.query(ctx, "PartitionKey eq "+quoteFilter(EscapeKey(tag)))
}

// QueryByPath scans rows whose RowKey is the path.
func (s *TableStore) QueryByPath(ctx context.Context, path string) ([]cache.TagItem, error) {
	return s.query(ctx, "RowKey eq "+quoteFilter(EscapeKey(path)))
}

func (s *TableStore) query(ctx context.Context, filter string) ([]cache.TagItem, error) {
	pager := s.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var items []cache.TagItem
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if isTableNotFound(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("query tags (%s): %w", filter, err)
		}
		for _, raw := range page.Entities {
			item, err := decodeEntity(raw)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// PutItems upserts every row; failures are combined.
func (s *TableStore) PutItems(ctx context.Context, items []cache.TagItem) error {
	var err error
	for _, item := range items {
		payload, encodeErr := encodeEntity(item)
		if encodeErr != nil {
			err = multierr.Append(err, encodeErr)
			continue
		}
		_, upsertErr := s.client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{
			UpdateMode: aztables.UpdateModeReplace,
		})
		if upsertErr != nil {
			err = multierr.Append(err, fmt.Errorf("upsert tag %s: %w", item.Tag, upsertErr))
		}
	}
	return err
}

// EnsureTable creates a table when missing.
func EnsureTable(ctx context.Context, service *aztables.ServiceClient, name string) error {
	if _, err := service.CreateTable(ctx, name, nil); err != nil {
		if hasErrorCode(err, "TableAlreadyExists") {
			return nil
		}
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

func encodeEntity(item cache.TagItem) ([]byte, error) {
	entity := aztables.EDMEntity{
		Entity: aztables.Entity{
			PartitionKey: EscapeKey(item.Tag),
			RowKey:       EscapeKey(item.Path),
		},
		Properties: map[string]any{
			propTag:           item.Tag,
			propPath:          item.Path,
			propRevalidatedAt: aztables.EDMInt64(item.RevalidatedAt),
		},
	}
	payload, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encode tag entity: %w", err)
	}
	return payload, nil
}

func decodeEntity(raw []byte) (cache.TagItem, error) {
	var entity aztables.EDMEntity
	if err := json.Unmarshal(raw, &entity); err != nil {
		return cache.TagItem{}, fmt.Errorf("decode tag entity: %w", err)
	}
	item := cache.TagItem{
		Tag:  UnescapeKey(entity.PartitionKey),
		Path: UnescapeKey(entity.RowKey),
	}
	if tag, ok := entity.Properties[propTag].(string); ok {
		item.Tag = tag
	}
	if path, ok := entity.Properties[propPath].(string); ok {
		item.Path = path
	}
	item.RevalidatedAt = toInt64(entity.Properties[propRevalidatedAt])
	return item, nil
}

func toInt64(value any) int64 {
	switch v := value.(type) {
	case aztables.EDMInt64:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		parsed, _ := strconv.ParseInt(v, 10, 64)
		return parsed
	default:
		return 0
	}
}

// EscapeKey percent-encodes characters Azure Tables rejects in keys
// (/ \ # ? and control characters) plus % itself.
func EscapeKey(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '/' || c == '\\' || c == '#' || c == '?' || c == '%' || c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// UnescapeKey reverses EscapeKey.
func UnescapeKey(value string) string {
	if !strings.Contains(value, "%") {
		return value
	}
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] == '%' && i+2 < len(value) {
			if decoded, err := strconv.ParseUint(value[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(decoded))
				i += 2
				continue
			}
		}
		b.WriteByte(value[i])
	}
	return b.String()
}

func quoteFilter(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func isTableNotFound(err error) bool {
	return hasErrorCode(err, "TableNotFound", "ResourceNotFound")
}

func hasErrorCode(err error, codes ...string) bool {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	for _, code := range codes {
		if respErr.ErrorCode == code {
			return true
		}
	}
	return false
}
