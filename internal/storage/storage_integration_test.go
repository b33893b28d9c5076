//go:build integration

package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"

	"github.com/lxp-recflow/engine/internal/storage"
)

// TestDownloadUploadRoundTrip exercises the real aws-sdk-go-v2 S3 client
// against a disposable MinIO container, rather than mocking the SDK.
func TestDownloadUploadRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcminio.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(ctr))
	})

	endpoint, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	const bucket = "recflow-test"
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(ctr.Username, ctr.Password, "")),
	)
	require.NoError(t, err)
	rawClient := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("http://" + endpoint)
		o.UsePathStyle = true
	})
	_, err = rawClient.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	client, err := storage.New(ctx, storage.Config{
		Endpoint:        "http://" + endpoint,
		Region:          "us-east-1",
		Bucket:          bucket,
		AccessKeyID:     ctr.Username,
		SecretAccessKey: ctr.Password,
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	err = client.Upload(ctx, "inputs/users.csv", []byte("user_id,interest_tags,level\n1,go;cloud,2\n"))
	require.NoError(t, err)

	data, err := client.Download(ctx, "inputs/users.csv")
	require.NoError(t, err)
	require.Equal(t, "user_id,interest_tags,level\n1,go;cloud,2\n", string(data))
}
