package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/gateway"
	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/quota/quotatest"
	"github.com/yeisme/drivemini/pkg/metrics"
)

func breakerConfig() configs.CircuitBreakerConfig {
	return configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       3,
		IntervalSeconds:   60,
		TimeoutSeconds:    30,
		MaxRequestsInHalf: 1,
	}
}

func TestWithBreaker_Disabled(t *testing.T) {
	fake := quotatest.NewFakeGateway()
	gw := gateway.WithBreaker(fake, configs.CircuitBreakerConfig{})

	assert.Same(t, fake, gw)
}

func TestWithBreaker_OpensAfterFailures(t *testing.T) {
	boom := errors.New("503 slow down")
	fake := quotatest.NewFakeGateway().FailList("uploads/", boom)
	gw := gateway.WithBreaker(fake, breakerConfig())

	for range 3 {
		_, err := gw.ListChildren(context.Background(), "uploads/")
		require.ErrorIs(t, err, boom)
	}

	_, err := gw.ListChildren(context.Background(), "uploads/")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, fake.ListCalls())
}

func TestWithBreaker_NotFoundIsNotAFailure(t *testing.T) {
	fake := quotatest.NewFakeGateway()
	gw := gateway.WithBreaker(fake, breakerConfig())

	for range 10 {
		_, err := gw.GetMetadata(context.Background(), "uploads/missing")
		require.ErrorIs(t, err, quota.ErrNotFound)
	}

	b, ok := gw.(*gateway.Breaker)
	require.True(t, ok)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestInstrumented_CountsResults(t *testing.T) {
	fake := quotatest.NewFakeGateway().AddObject("uploads/a", 1)
	gw := gateway.Instrumented(fake)

	okBefore := testutil.ToFloat64(metrics.GatewayCalls.WithLabelValues("stat", "ok"))
	nfBefore := testutil.ToFloat64(metrics.GatewayCalls.WithLabelValues("stat", "not_found"))

	_, err := gw.GetMetadata(context.Background(), "uploads/a")
	require.NoError(t, err)

	_, err = gw.GetMetadata(context.Background(), "uploads/b")
	require.ErrorIs(t, err, quota.ErrNotFound)

	assert.InDelta(t, okBefore+1, testutil.ToFloat64(metrics.GatewayCalls.WithLabelValues("stat", "ok")), 1e-9)
	assert.InDelta(t, nfBefore+1, testutil.ToFloat64(metrics.GatewayCalls.WithLabelValues("stat", "not_found")), 1e-9)
}

const listBody = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>drive</Name>
  <Prefix>uploads/</Prefix>
  <KeyCount>3</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <Delimiter>/</Delimiter>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>uploads/a.txt</Key>
    <LastModified>2024-01-01T00:00:00.000Z</LastModified>
    <ETag>"abc"</ETag>
    <Size>5</Size>
    <StorageClass>STANDARD</StorageClass>
  </Contents>
  <Contents>
    <Key>uploads/.keep</Key>
    <LastModified>2024-01-01T00:00:00.000Z</LastModified>
    <ETag>"def"</ETag>
    <Size>0</Size>
    <StorageClass>STANDARD</StorageClass>
  </Contents>
  <CommonPrefixes>
    <Prefix>uploads/docs/</Prefix>
  </CommonPrefixes>
</ListBucketResult>`

func newMinio(t *testing.T, h http.HandlerFunc) *gateway.Minio {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cli, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)

	return gateway.NewMinio(cli, "drive")
}

func TestMinio_ListChildren(t *testing.T) {
	gw := newMinio(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(listBody))
	})

	l, err := gw.ListChildren(context.Background(), "uploads/")
	require.NoError(t, err)

	require.Len(t, l.Folders, 1)
	assert.Equal(t, quota.FolderRef{Name: "docs", Path: "uploads/docs/"}, l.Folders[0])

	require.Len(t, l.Objects, 2)
	assert.Equal(t, "a.txt", l.Objects[0].Name)
	assert.Equal(t, "uploads/.keep", l.Objects[1].Path)
}

func TestMinio_GetMetadataNotFound(t *testing.T) {
	gw := newMinio(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/present") {
			w.Header().Set("Content-Length", "7")
			w.Header().Set("Last-Modified", "Mon, 01 Jan 2024 00:00:00 GMT")
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusOK)

			return
		}

		w.WriteHeader(http.StatusNotFound)
	})

	meta, err := gw.GetMetadata(context.Background(), "uploads/present")
	require.NoError(t, err)
	assert.Equal(t, int64(7), meta.SizeBytes)

	_, err = gw.GetMetadata(context.Background(), "uploads/missing")
	require.ErrorIs(t, err, quota.ErrNotFound)
}
