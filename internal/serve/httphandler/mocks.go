package httphandler

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/services"
)

type MockTaskService struct {
	mock.Mock
}

var _ TaskServiceInterface = (*MockTaskService)(nil)
var _ TaskFeedInterface = (*MockTaskService)(nil)

func (m *MockTaskService) CreateBatch(ctx context.Context, requesterID string, inputs []services.TaskInput) (string, int, error) {
	args := m.Called(ctx, requesterID, inputs)
	return args.String(0), args.Int(1), args.Error(2)
}

func (m *MockTaskService) CreateBatchFromCSV(ctx context.Context, requesterID string, csvFile io.Reader) (string, int, error) {
	args := m.Called(ctx, requesterID, csvFile)
	return args.String(0), args.Int(1), args.Error(2)
}

func (m *MockTaskService) PublishBatch(ctx context.Context, requesterID, batchID string) (int, error) {
	args := m.Called(ctx, requesterID, batchID)
	return args.Int(0), args.Error(1)
}

func (m *MockTaskService) ListByRequester(ctx context.Context, requesterID string, status *data.TaskStatus) ([]*data.Task, error) {
	args := m.Called(ctx, requesterID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*data.Task), args.Error(1)
}

func (m *MockTaskService) ListAvailable(ctx context.Context, workerID string, limit int) ([]services.AvailableTask, data.WorkerLevel, error) {
	args := m.Called(ctx, workerID, limit)
	if args.Get(0) == nil {
		return nil, data.WorkerLevel(args.String(1)), args.Error(2)
	}
	return args.Get(0).([]services.AvailableTask), args.Get(1).(data.WorkerLevel), args.Error(2)
}

type MockAssignmentService struct {
	mock.Mock
}

var _ AssignmentServiceInterface = (*MockAssignmentService)(nil)

func (m *MockAssignmentService) AssignTask(ctx context.Context, taskID, workerID string) (*data.Assignment, error) {
	args := m.Called(ctx, taskID, workerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Assignment), args.Error(1)
}

type MockSubmissionService struct {
	mock.Mock
}

var _ SubmissionServiceInterface = (*MockSubmissionService)(nil)

func (m *MockSubmissionService) SubmitAnswer(ctx context.Context, taskID, workerID, assignmentID, answer string) (*data.Submission, error) {
	args := m.Called(ctx, taskID, workerID, assignmentID, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Submission), args.Error(1)
}

type MockDisputeService struct {
	mock.Mock
}

var _ DisputeServiceInterface = (*MockDisputeService)(nil)

func (m *MockDisputeService) OpenDispute(ctx context.Context, submissionID, workerID, reason string) (*data.Dispute, error) {
	args := m.Called(ctx, submissionID, workerID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Dispute), args.Error(1)
}

func (m *MockDisputeService) ResolveDispute(ctx context.Context, disputeID string, decision data.DisputeDecision, adminNotes string) error {
	args := m.Called(ctx, disputeID, decision, adminNotes)
	return args.Error(0)
}

type MockWalletService struct {
	mock.Mock
}

var _ WalletServiceInterface = (*MockWalletService)(nil)

func (m *MockWalletService) GetBalance(ctx context.Context, walletID string) (decimal.Decimal, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletService) Deposit(ctx context.Context, walletID string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, walletID, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletService) Withdraw(ctx context.Context, walletID string, amount decimal.Decimal, payoutEmail string) (decimal.Decimal, error) {
	args := m.Called(ctx, walletID, amount, payoutEmail)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletService) ListTransactions(ctx context.Context, walletID string, limit int) ([]*data.Transaction, error) {
	args := m.Called(ctx, walletID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*data.Transaction), args.Error(1)
}

type MockMediaPresigner struct {
	mock.Mock
}

var _ MediaPresignerInterface = (*MockMediaPresigner)(nil)

func (m *MockMediaPresigner) PresignUpload(ctx context.Context, mediaKey, contentType string) (string, error) {
	args := m.Called(ctx, mediaKey, contentType)
	return args.String(0), args.Error(1)
}
