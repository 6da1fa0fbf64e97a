package saga

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/entity"
)

const aggregatePrefix = "order-"

func aggregateIDFor(orderID uuid.UUID) string {
	return aggregatePrefix + orderID.String()
}

func orderIDFrom(aggregateID string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(aggregateID, aggregatePrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("aggregate id %q has no %q prefix", aggregateID, aggregatePrefix)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("uuid.Parse: %w", err)
	}

	return id, nil
}

// Payloads are JSON-encoded exactly once; consumers decode the bytes as-is.
func marshalPayload(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	return b, nil
}

func unmarshalPayload(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return nil
}

func quantitiesOf(items []entity.OrderItem) map[uuid.UUID]int64 {
	m := make(map[uuid.UUID]int64, len(items))
	for _, item := range items {
		m[item.ProductID] += item.Quantity
	}

	return m
}
