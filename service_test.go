package docrag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/mock"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fault"
	"github.com/poiesic/docrag/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ocrResult = `{"analyzeResult": {"content": "Tokyo safety code established 1950.\nStairs must be at least one meter wide."}}`

type testService struct {
	*Service
	provider *mock.MockProvider
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	dir := t.TempDir()
	ocrDir := filepath.Join(dir, "ocr")
	require.NoError(t, os.MkdirAll(ocrDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ocrDir, "東京都建築安全条例.json"), []byte(ocrResult), 0644))

	cfg := config.Default()
	cfg.TokenizerModel = ""
	cfg.ChunkSize = 16
	cfg.ChunkOverlap = 2
	cfg.StorageLocalDir = filepath.Join(dir, "uploads")
	cfg.OCRResultDir = ocrDir

	provider := mock.NewMockProvider()
	svc, err := NewService(context.Background(), cfg, WithProvider(provider), WithInMemoryStorage())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return &testService{Service: svc, provider: provider}
}

func upload(t *testing.T, svc *testService, name string) string {
	t.Helper()
	objs, err := svc.Upload(context.Background(), Upload{
		Filename:    name,
		ContentType: "application/pdf",
		Size:        -1,
		Body:        strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	require.Len(t, objs, 1)
	return objs[0].Locator
}

func TestNewService_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkOverlap = cfg.ChunkSize

	svc, err := NewService(context.Background(), cfg, WithProvider(mock.NewMockProvider()), WithInMemoryStorage())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Nil(t, svc)
}

func TestNewService_OnDisk(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.TokenizerModel = ""
	cfg.TaskDBPath = filepath.Join(dir, "db")
	cfg.VectorDBPath = filepath.Join(dir, "db")
	cfg.StorageLocalDir = filepath.Join(dir, "uploads")

	svc, err := NewService(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.Len(t, svc.backends, 1, "index and tasks share a database")
	require.NoError(t, svc.Ingest(context.Background(), core.Document{Text: "a b c", Source: "s1"}))
	require.NoError(t, svc.Close())
}

func TestService_UploadRejectsUnsupportedTypes(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Upload(context.Background(),
		Upload{Filename: "ok.pdf", ContentType: "application/pdf", Body: strings.NewReader("x")},
		Upload{Filename: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("x")},
		Upload{Filename: "anim.gif", ContentType: "image/gif", Body: strings.NewReader("x")},
	)
	require.True(t, fault.Is(err, fault.UnsupportedInput))
	assert.Contains(t, err.Error(), "notes.txt, anim.gif")

	entries, err := os.ReadDir(svc.cfg.StorageLocalDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is stored when any file is rejected")
}

func TestService_IngestionTaskAndExtract(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	locator := upload(t, svc, "東京都建築安全条例.pdf")

	id, err := svc.SubmitIngestion(ctx, locator)
	require.NoError(t, err)
	svc.WaitTasks()

	task, err := svc.TaskStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.TaskSuccess, task.Status)
	assert.Equal(t, locator, task.Locator)

	result, err := svc.Extract(ctx, locator, "When was it established?")
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultAnswer, result.Response)
	assert.True(t, strings.HasSuffix(result.Filename, "_東京都建築安全条例.pdf"))
	assert.Contains(t, svc.provider.GetMockGenerator().LastPrompt(), "established 1950")
}

func TestService_IngestionTaskFailures(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("file without OCR result", func(t *testing.T) {
		locator := upload(t, svc, "unknown.pdf")
		id, err := svc.SubmitIngestion(ctx, locator)
		require.NoError(t, err)
		svc.WaitTasks()

		task, err := svc.TaskStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.TaskFailure, task.Status)
		assert.Equal(t, fault.StorageNotFound.String(), task.FaultKind)
		assert.Equal(t, fault.New(fault.StorageNotFound, "").Message, task.Detail)
	})

	t.Run("provider rejects credentials", func(t *testing.T) {
		svc.provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, &ai.ProviderError{Provider: "openai", StatusCode: 401}
		}
		t.Cleanup(svc.provider.GetMockEmbedder().Reset)

		locator := upload(t, svc, "東京都建築安全条例.pdf")
		id, err := svc.SubmitIngestion(ctx, locator)
		require.NoError(t, err)
		svc.WaitTasks()

		task, err := svc.TaskStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.TaskFailure, task.Status)
		assert.Equal(t, fault.AuthFailure.String(), task.FaultKind)
	})

	t.Run("bad locator", func(t *testing.T) {
		_, err := svc.SubmitIngestion(ctx, "http://storage/")
		assert.True(t, fault.Is(err, fault.StorageNotFound))
	})
}

func TestService_TaskStatusUnknown(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.TaskStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, tasks.ErrTaskNotFound)
}

func TestService_ExtractMissingFile(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Extract(context.Background(), "file:///nowhere/0f8fad5b-d9cb-469f-a165-70867728950e_gone.pdf", "q")
	assert.True(t, fault.Is(err, fault.StorageNotFound))
	assert.Zero(t, svc.provider.GetMockGenerator().CallCount())
}

func TestService_AnswerUsesConfiguredTopK(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Ingest(ctx, core.Document{Text: "Tokyo safety code established 1950", Source: "s1"}))

	answer, err := svc.Answer(ctx, "When was it established?", "s1", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, answer)

	answer, err = svc.Answer(ctx, "When was it established?", "s2", 1)
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultAnswer, answer)
}

func TestService_Describe(t *testing.T) {
	svc := newTestService(t)
	err := svc.Ingest(context.Background(), core.Document{Source: "s1"})

	report := svc.Describe(err)
	assert.Equal(t, fault.UnsupportedInput.Code(), report.Code)
	assert.Empty(t, report.Detail)
}

func TestNewService_UnknownTokenizerModel(t *testing.T) {
	cfg := config.Default()
	cfg.TokenizerModel = "no-such-model"

	svc, err := NewService(context.Background(), cfg, WithProvider(mock.NewMockProvider()), WithInMemoryStorage())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Nil(t, svc)
}

func TestService_ListTasks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	records, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	first, err := svc.SubmitIngestion(ctx, upload(t, svc, "東京都建築安全条例.pdf"))
	require.NoError(t, err)
	second, err := svc.SubmitIngestion(ctx, upload(t, svc, "unknown.pdf"))
	require.NoError(t, err)
	svc.WaitTasks()

	records, err = svc.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	ids := []string{records[0].Id, records[1].Id}
	assert.ElementsMatch(t, []string{first, second}, ids)
	for _, task := range records {
		assert.True(t, task.Status.Terminal(), task.Id)
	}
}

func TestService_Replace(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Ingest(ctx, core.Document{Text: "Old text about oranges.", Source: "s1"}))

	removed, err := svc.Replace(ctx, core.Document{Text: "Tokyo safety code established 1950.", Source: "s1"})
	require.NoError(t, err)
	assert.Positive(t, removed)

	_, err = svc.Answer(ctx, "oranges", "s1", 5)
	require.NoError(t, err)
	prompt := svc.provider.GetMockGenerator().LastPrompt()
	assert.Contains(t, prompt, "established 1950")
	assert.NotContains(t, prompt, "oranges.")

	_, err = svc.Replace(ctx, core.Document{Source: "s1"})
	assert.True(t, fault.Is(err, fault.UnsupportedInput))

	_, err = svc.Answer(ctx, "code", "s1", 5)
	require.NoError(t, err)
	assert.Contains(t, svc.provider.GetMockGenerator().LastPrompt(), "established 1950", "invalid input leaves the index untouched")
}
