package askdex

import (
	"context"
	"errors"

	"github.com/kailas-cloud/askdex/internal/db"
	domanswer "github.com/kailas-cloud/askdex/internal/domain/answer"
	answeruc "github.com/kailas-cloud/askdex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
)

// --- answerUseCase mock ---

type mockAnswerUC struct {
	askFn      func(ctx context.Context, question string) (domanswer.Answer, error)
	partitions []answeruc.PartitionSpec
	closed     bool
}

func (m *mockAnswerUC) Ask(ctx context.Context, question string) (domanswer.Answer, error) {
	return m.askFn(ctx, question)
}

func (m *mockAnswerUC) Partitions() []answeruc.PartitionSpec { return m.partitions }

func (m *mockAnswerUC) Close() { m.closed = true }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- index manager mock ---

type mockIndexes struct {
	existing map[string]bool
	created  []string
	dropped  []string
	existErr error
}

func (m *mockIndexes) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if m.existing[def.Name] {
		return db.ErrIndexExists
	}
	m.created = append(m.created, def.Name)
	return nil
}

func (m *mockIndexes) DropIndex(_ context.Context, name string) error {
	if !m.existing[name] {
		return db.ErrIndexNotFound
	}
	delete(m.existing, name)
	m.dropped = append(m.dropped, name)
	return nil
}

func (m *mockIndexes) IndexExists(_ context.Context, name string) (bool, error) {
	if m.existErr != nil {
		return false, m.existErr
	}
	return m.existing[name], nil
}

// --- public interface mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockSynthesizer struct {
	got  SynthesisRequest
	text string
	err  error
}

func (m *mockSynthesizer) Synthesize(_ context.Context, req SynthesisRequest) (string, error) {
	m.got = req
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

var errBoom = errors.New("boom")

// --- helpers ---

func testClient(answers answerUseCase, health healthUseCase, usage usageUseCase) *Client {
	return &Client{
		answers:   answers,
		healthSvc: health,
		usageSvc:  usage,
	}
}
