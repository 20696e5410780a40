package mocks

import (
	"context"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

// ObjectAPI is a mock implementation of storage.ObjectAPI
type ObjectAPI struct {
	mock.Mock
}

func (m *ObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.PutObjectOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ObjectAPI) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.DeleteObjectsOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

// PresignAPI is a mock implementation of storage.PresignAPI.
// Options passed to PresignGetObject are applied and recorded in Options.
type PresignAPI struct {
	mock.Mock
	Options s3.PresignOptions
}

func (m *PresignAPI) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	m.Options = s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&m.Options)
	}
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*v4.PresignedHTTPRequest); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

// ClientAPIOptions applies the recorded client options and returns how many
// API stack mutators they register.
func (m *PresignAPI) ClientAPIOptions() int {
	var o s3.Options
	for _, fn := range m.Options.ClientOptions {
		fn(&o)
	}
	return len(o.APIOptions)
}
