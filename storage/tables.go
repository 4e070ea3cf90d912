package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"activity-events/domain"
)

const defaultPageSize int32 = 100

// TableStore keeps each view in its own Azure table. The view's partition is the
// entity PartitionKey and its clustering value the RowKey.
type TableStore struct {
	tables   map[string]*aztables.Client
	names    map[string]string
	pageSize int32
}

// NewTableStore creates a TableStore from a connection string and a view to table name mapping.
func NewTableStore(connStr string, tableNames map[string]string) (*TableStore, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    30 * time.Second,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	s := &TableStore{
		tables:   make(map[string]*aztables.Client, len(tableNames)),
		names:    make(map[string]string, len(tableNames)),
		pageSize: defaultPageSize,
	}
	for view, name := range tableNames {
		if name == "" {
			return nil, fmt.Errorf("no table name for view %s", view)
		}
		s.tables[view] = svc.NewClient(name)
		s.names[view] = name
	}
	return s, nil
}

func (s *TableStore) client(op, view string) (*aztables.Client, error) {
	c, ok := s.tables[view]
	if !ok {
		return nil, domain.SchemaMismatch(op, view, errors.New("no table configured"))
	}
	return c, nil
}

// UpsertRow replaces the entity at the row's keys.
func (s *TableStore) UpsertRow(ctx context.Context, view string, row domain.Row) error {
	c, err := s.client("upsert", view)
	if err != nil {
		return err
	}
	payload, err := encodeEntity(row)
	if err != nil {
		return domain.SchemaMismatch("upsert", view, err)
	}
	_, err = c.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return classify("upsert", view, err)
}

// QueryRows pages through one partition in RowKey order.
func (s *TableStore) QueryRows(ctx context.Context, view, partition, after string) iter.Seq2[domain.Row, error] {
	return func(yield func(domain.Row, error) bool) {
		c, err := s.client("query", view)
		if err != nil {
			yield(domain.Row{}, err)
			return
		}
		filter := partitionFilter(partition, after)
		top := s.pageSize
		pager := c.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Top: &top})
		for pager.More() {
			resp, err := pager.NextPage(ctx)
			if err != nil {
				yield(domain.Row{}, classify("query", view, err))
				return
			}
			for _, e := range resp.Entities {
				row, err := decodeEntity(e)
				if err != nil {
					yield(domain.Row{}, domain.SchemaMismatch("query", view, err))
					return
				}
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// GetRow retrieves one entity if present.
func (s *TableStore) GetRow(ctx context.Context, view, partition, rowKey string) (*domain.Row, error) {
	c, err := s.client("get", view)
	if err != nil {
		return nil, err
	}
	ent, err := c.GetEntity(ctx, partition, rowKey, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("get", view, err)
	}
	row, err := decodeEntity(ent.Value)
	if err != nil {
		return nil, domain.SchemaMismatch("get", view, err)
	}
	return &row, nil
}

// EnsureTables creates every configured table, ignoring tables that already exist.
func (s *TableStore) EnsureTables(ctx context.Context) error {
	for view, c := range s.tables {
		_, err := c.CreateTable(ctx, nil)
		if err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return fmt.Errorf("create table %s for %s: %w", s.names[view], view, err)
			}
		}
	}
	return nil
}

// Ping reads at most one entity from every table.
func (s *TableStore) Ping(ctx context.Context) error {
	top := int32(1)
	for view, c := range s.tables {
		pager := c.NewListEntitiesPager(&aztables.ListEntitiesOptions{Top: &top})
		if _, err := pager.NextPage(ctx); err != nil {
			return classify("ping", view, err)
		}
	}
	return nil
}

// Close is a no-op; table clients hold no connections of their own.
func (s *TableStore) Close() error { return nil }

// partitionFilter builds the OData filter selecting one partition past an exclusive RowKey bound.
func partitionFilter(partition, after string) string {
	filter := "PartitionKey eq '" + escapeODataString(partition) + "'"
	if after != "" {
		filter += " and RowKey gt '" + escapeODataString(after) + "'"
	}
	return filter
}

func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
