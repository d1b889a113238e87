package service

import "context"

type testTxRepos struct {
	faqs          FAQRepositoryInterface
	embeddingJobs EmbeddingJobRepositoryInterface
	events        QueryEventRepositoryInterface
	actions       QueryActionRepositoryInterface
	sessions      SessionRepositoryInterface
}

func (t *testTxRepos) FAQs() FAQRepositoryInterface {
	return t.faqs
}

func (t *testTxRepos) EmbeddingJobs() EmbeddingJobRepositoryInterface {
	return t.embeddingJobs
}

func (t *testTxRepos) Events() QueryEventRepositoryInterface {
	return t.events
}

func (t *testTxRepos) Actions() QueryActionRepositoryInterface {
	return t.actions
}

func (t *testTxRepos) Sessions() SessionRepositoryInterface {
	return t.sessions
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
