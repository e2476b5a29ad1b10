package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

type azureMirror struct {
	client    *azblob.Client
	container string
}

// NewAzureMirror mirrors artifacts into a blob container using a shared key
func NewAzureMirror(accountName, accountKey, container string) (Mirror, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureMirror{client: client, container: container}, nil
}

func (m *azureMirror) Put(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := m.client.UploadBuffer(ctx, m.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("azure upload of %s failed: %w", name, err)
	}
	return nil
}

func (m *azureMirror) Delete(ctx context.Context, name string) error {
	if _, err := m.client.DeleteBlob(ctx, m.container, name, nil); err != nil {
		return fmt.Errorf("azure delete of %s failed: %w", name, err)
	}
	return nil
}

func (m *azureMirror) Name() string {
	return "azure"
}
