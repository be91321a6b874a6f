package data

import (
	"errors"

	"github.com/crowdtask/platform-backend/internal/db"
)

var (
	ErrRecordNotFound          = errors.New("record not found")
	ErrRecordAlreadyExists     = errors.New("record already exists")
	ErrMismatchNumRowsAffected = errors.New("mismatch number of rows affected")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrMissingInput            = errors.New("missing input")
)

// PlatformWalletID is the reserved sink account collecting the platform fee.
const PlatformWalletID = "PLATFORM_WALLET"

type Models struct {
	Tasks            *TaskModel
	Assignments      *AssignmentModel
	Submissions      *SubmissionModel
	Disputes         *DisputeModel
	Workers          *WorkerModel
	Wallets          *WalletModel
	Transactions     *TransactionModel
	DBConnectionPool db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}
	return &Models{
		Tasks:            &TaskModel{dbConnectionPool: dbConnectionPool},
		Assignments:      &AssignmentModel{dbConnectionPool: dbConnectionPool},
		Submissions:      &SubmissionModel{dbConnectionPool: dbConnectionPool},
		Disputes:         &DisputeModel{dbConnectionPool: dbConnectionPool},
		Workers:          &WorkerModel{dbConnectionPool: dbConnectionPool},
		Wallets:          &WalletModel{dbConnectionPool: dbConnectionPool},
		Transactions:     &TransactionModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool: dbConnectionPool,
	}, nil
}
