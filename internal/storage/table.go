package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"
	"unicode/utf16"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
)

const (
	boardPartitionKey = "board"
	boardRowKey       = "document"

	// maxTableStringBytes is the Table service limit for one string property,
	// measured in UTF-16.
	maxTableStringBytes = 64 * 1024
)

// ErrBoardTooLarge is returned when a document does not fit in one entity.
var ErrBoardTooLarge = errors.New("board document exceeds table property limit")

type tableClient interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
}

// TableBoard keeps the board document as a single Azure Table entity so that
// several server processes on different hosts can share one board.
type TableBoard struct {
	client tableClient
}

type boardEntity struct {
	aztables.Entity
	Content string `json:"Content"`
}

// NewTableBoard connects to table using an Azure Storage connection string.
func NewTableBoard(connStr, table string) (*TableBoard, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    30 * time.Second,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, fmt.Errorf("table service: %w", err)
	}
	return &TableBoard{client: svc.NewClient(table)}, nil
}

// EnsureTable creates the backing table when it does not exist yet.
func (b *TableBoard) EnsureTable(ctx context.Context) error {
	_, err := b.client.CreateTable(ctx, nil)
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
		return nil
	}
	return fmt.Errorf("create board table: %w", err)
}

// Read returns the stored document. A board that was never written reports
// fs.ErrNotExist, like a missing file.
func (b *TableBoard) Read(ctx context.Context) (string, error) {
	resp, err := b.client.GetEntity(ctx, boardPartitionKey, boardRowKey, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("read board: %w", fs.ErrNotExist)
		}
		return "", fmt.Errorf("read board: %w", err)
	}
	var ent boardEntity
	if err := sonic.ConfigStd.Unmarshal(resp.Value, &ent); err != nil {
		return "", fmt.Errorf("decode board entity: %w", err)
	}
	return ent.Content, nil
}

// Write replaces the stored document in one upsert.
func (b *TableBoard) Write(ctx context.Context, content string) error {
	if utf16Bytes(content) > maxTableStringBytes {
		return ErrBoardTooLarge
	}
	payload, err := sonic.ConfigStd.Marshal(boardEntity{
		Entity:  aztables.Entity{PartitionKey: boardPartitionKey, RowKey: boardRowKey},
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("encode board entity: %w", err)
	}
	if _, err := b.client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		return fmt.Errorf("write board: %w", err)
	}
	return nil
}

func utf16Bytes(s string) int {
	n := 0
	for _, r := range s {
		n += 2 * utf16.RuneLen(r)
	}
	return n
}
