package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// セッションmetadataのキー。プロバイダ側に保持される文字列mapなので
// 構造はすべてJSON文字列か10進文字列に落とす
const (
	metaItems         = "items"
	metaCustomerName  = "customer_name"
	metaCustomerEmail = "customer_email"
	metaAddress       = "shipping_address"
	metaSubtotal      = "subtotal"
	metaShipping      = "shipping"
	metaTax           = "tax"
	metaTotal         = "total"
)

// 「顧客が何を買おうとしたか」のスナップショット。
// Order行ができるまでの間、プロバイダのセッションmetadataだけが永続データになる
type orderSnapshot struct {
	Items         []CheckoutLineInput
	CustomerName  string
	CustomerEmail string
	Address       CheckoutAddressInput
	Subtotal      int64
	Shipping      int64
	Tax           int64
	Total         int64
}

func encodeOrderSnapshot(s orderSnapshot) (map[string]string, error) {
	itemsJSON, err := json.Marshal(s.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	addrJSON, err := json.Marshal(s.Address)
	if err != nil {
		return nil, fmt.Errorf("marshal address: %w", err)
	}

	return map[string]string{
		metaItems:         string(itemsJSON),
		metaCustomerName:  s.CustomerName,
		metaCustomerEmail: s.CustomerEmail,
		metaAddress:       string(addrJSON),
		metaSubtotal:      strconv.FormatInt(s.Subtotal, 10),
		metaShipping:      strconv.FormatInt(s.Shipping, 10),
		metaTax:           strconv.FormatInt(s.Tax, 10),
		metaTotal:         strconv.FormatInt(s.Total, 10),
	}, nil
}

func decodeOrderSnapshot(metadata map[string]string) (orderSnapshot, error) {
	var s orderSnapshot

	itemsJSON, ok := metadata[metaItems]
	if !ok || itemsJSON == "" {
		return orderSnapshot{}, fmt.Errorf("metadata missing %q", metaItems)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &s.Items); err != nil {
		return orderSnapshot{}, fmt.Errorf("unmarshal items: %w", err)
	}
	if len(s.Items) == 0 {
		return orderSnapshot{}, fmt.Errorf("snapshot has no items")
	}

	if addrJSON := metadata[metaAddress]; addrJSON != "" {
		if err := json.Unmarshal([]byte(addrJSON), &s.Address); err != nil {
			return orderSnapshot{}, fmt.Errorf("unmarshal address: %w", err)
		}
	}

	s.CustomerName = metadata[metaCustomerName]
	s.CustomerEmail = metadata[metaCustomerEmail]

	var err error
	if s.Subtotal, err = parseAmount(metadata, metaSubtotal); err != nil {
		return orderSnapshot{}, err
	}
	if s.Shipping, err = parseAmount(metadata, metaShipping); err != nil {
		return orderSnapshot{}, err
	}
	if s.Tax, err = parseAmount(metadata, metaTax); err != nil {
		return orderSnapshot{}, err
	}
	if s.Total, err = parseAmount(metadata, metaTotal); err != nil {
		return orderSnapshot{}, err
	}

	return s, nil
}

func parseAmount(metadata map[string]string, key string) (int64, error) {
	v, ok := metadata[key]
	if !ok {
		return 0, fmt.Errorf("metadata missing %q", key)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
