package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	stepScenario = "scenario"
	stepCreate   = "CreateOrder"
	stepUpdate   = "UpdateOrder"
	stepDelete   = "DeleteOrder"

	headerOrderID = "X-Order-ID"
	ordersPath    = "/api/v1/orders"
)

type orderPayload struct {
	SKU      string `json:"sku"`
	Qty      int    `json:"qty"`
	Customer string `json:"customer"`
	Revision int    `json:"revision"`
}

type restClient struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	col     *collector
}

func runScenario(ctx context.Context, client *restClient, cfg config, index int, runID string) (err error) {
	started := time.Now()
	defer func() {
		code := resultOK
		if err != nil {
			code = resultError
		}
		client.col.record(stepScenario, time.Since(started), code, err == nil)
	}()

	orderID := fmt.Sprintf("lt-%s-%d", runID, index)
	payload := orderPayload{
		SKU:      cfg.sku,
		Qty:      1,
		Customer: fmt.Sprintf("%s-%d", cfg.customerTag, index),
	}

	if err := client.do(ctx, stepCreate, http.MethodPost, ordersPath, orderID, payload, http.StatusCreated); err != nil {
		return err
	}

	switch cfg.mode {
	case modeCreate:
		return nil
	case modeCreateUpdateDelete:
		payload.Revision++
		if err := client.do(ctx, stepUpdate, http.MethodPut, orderPath(orderID), "", payload, http.StatusOK); err != nil {
			return err
		}
	}

	return client.do(ctx, stepDelete, http.MethodDelete, orderPath(orderID), "", nil, http.StatusNoContent)
}

func orderPath(orderID string) string {
	return ordersPath + "/" + url.PathEscape(orderID)
}

// do выполняет один HTTP-запрос шага и записывает его результат в collector.
func (c *restClient) do(ctx context.Context, step, method, path, orderID string, body any, want int) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode payload: %w", step, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", step, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if orderID != "" {
		req.Header.Set(headerOrderID, orderID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.col.record(step, time.Since(start), resultError, false)
		return fmt.Errorf("%s: %w", step, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	ok := resp.StatusCode == want
	c.col.record(step, time.Since(start), strconv.Itoa(resp.StatusCode), ok)
	if !ok {
		return fmt.Errorf("%s: unexpected status %d, want %d", step, resp.StatusCode, want)
	}
	return nil
}
