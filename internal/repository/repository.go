package repository

import "gorm.io/gorm"

type Repository struct {
	DB     *gorm.DB
	Stocks StockRepo
	Ledger LedgerRepo
	Carts  CartRepo
	Orders OrderRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:     db,
		Stocks: NewStockRepo(db),
		Ledger: NewLedgerRepo(db),
		Carts:  NewCartRepo(db),
		Orders: NewOrderRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// Глобальная транзакция на весь набор репо
func (r *Repository) WithTx(fn func(tx *Repository) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
