package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderapi/internal/collaborator/erp"
	"github.com/vladislavdragonenkov/orderapi/internal/collaborator/products"
	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

// newOrderCreator возвращает клиент ERP. Без URL используется erp.Noop.
func newOrderCreator(cfg Config, logger *log.Entry) (domain.OrderCreator, error) {
	endpoint := strings.TrimSpace(cfg.ERPURL)
	if endpoint == "" {
		logger.Info("erp url is not configured, orders are not forwarded")
		return erp.Noop{}, nil
	}

	opts := []erp.Option{erp.WithLogger(logger.WithField("collaborator", "erp"))}
	if cfg.ERPTimeout > 0 {
		opts = append(opts, erp.WithTimeout(cfg.ERPTimeout))
	}
	if cfg.ERPCircuitBreaker {
		opts = append(opts, erp.WithCircuitBreaker(0, 0))
	}

	client, err := erp.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	logger.WithField("endpoint", endpoint).Info("erp client initialized")
	return client, nil
}

// newProductCatalog возвращает каталог товаров. Реального сервиса каталога пока нет,
// поэтому используется пустая заглушка.
func newProductCatalog() domain.ProductCatalog {
	return products.NewStub()
}
