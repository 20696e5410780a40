// Package storage keeps one S3 client per bucket and runs uploads, batch
// deletes and presigned GET links against them.
//
// # Registry
//
// A Registry is created once at startup and passed to whoever needs storage:
//
//	reg := storage.NewRegistry()
//	entry, err := reg.GetOrCreate(ctx, storage.ClientConfig{
//		Bucket:          "photos",
//		Endpoint:        "s3.example.com",
//		AccessKey:       "AKIA...",
//		SecretKey:       "...",
//		EncryptionKeyID: "arn:aws:kms:...",
//	})
//	url, err := reg.Upload(ctx, "photos", "a.jpg", base64Data, true)
//	link, err := reg.Presign(ctx, entry.Client, "photos", "a.jpg", entry.EncryptionKeyID)
//	res, err := reg.Delete(ctx, "photos", "a.jpg", "b.jpg")
//
// The first registration of a bucket is kept for the life of the Registry.
// Later GetOrCreate calls with other parameters return the original entry;
// Reconfigure replaces it explicitly.
//
// Operations on a bucket that was never registered are no-ops: Upload returns
// an empty URL and Delete a nil result, both without error and without
// contacting the store.
//
// # Errors
//
// ErrEncoding, ErrNoKeys and ErrConfiguration are returned wrapped; test with
// errors.Is. Backend failures come back as *OperationError carrying the SDK
// error. Nothing is retried.
package storage
