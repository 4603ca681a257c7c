package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/openclaw/walletbridge/internal/approver"
)

// displayMessage renders the personal_sign payload for the approver: decoded
// UTF-8 when every byte is printable (or tab/CR/LF), otherwise the raw hex.
func displayMessage(hexPayload string) []approver.DisplayField {
	message := hexPayload
	if payload, err := decodeHexPayload(hexPayload); err == nil && isPrintable(payload) {
		message = string(payload)
	}
	return []approver.DisplayField{{Key: "message", Value: message}}
}

func isPrintable(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, b := range data {
		if b >= 0x20 && b <= 0x7e {
			continue
		}
		if b == '\t' || b == '\r' || b == '\n' {
			continue
		}
		return false
	}
	return true
}

// displayTypedData summarises an EIP-712 payload: domain name, primary type,
// and the message subtree pretty-printed.
func displayTypedData(typedJSON string) []approver.DisplayField {
	domain := "Unknown"
	primaryType := "Unknown"
	data := typedJSON

	var parsed struct {
		Domain struct {
			Name string `json:"name"`
		} `json:"domain"`
		PrimaryType string          `json:"primaryType"`
		Message     json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal([]byte(typedJSON), &parsed); err == nil {
		if parsed.Domain.Name != "" {
			domain = parsed.Domain.Name
		}
		if parsed.PrimaryType != "" {
			primaryType = parsed.PrimaryType
		}
		if len(parsed.Message) > 0 {
			var pretty bytes.Buffer
			if json.Indent(&pretty, parsed.Message, "", "  ") == nil {
				data = pretty.String()
			}
		}
	}

	return []approver.DisplayField{
		{Key: "domain", Value: domain},
		{Key: "primaryType", Value: primaryType},
		{Key: "data", Value: data},
	}
}

// displayTransaction renders the fields a user needs to judge a transaction.
func displayTransaction(p txParams) []approver.DisplayField {
	to := p.To
	if to == "" {
		to = "(contract creation)"
	}

	gas := "auto"
	if p.Gas != "" {
		gas = p.Gas
	}

	return []approver.DisplayField{
		{Key: "to", Value: to},
		{Key: "value", Value: formatEther(p.Value)},
		{Key: "data", Value: formatData(p.Data)},
		{Key: "gas", Value: gas},
	}
}

// formatEther renders a hex wei amount as "N ETH". Zero or missing values are
// "0 ETH"; undecodable values fall back to the raw hex.
func formatEther(weiHex string) string {
	if weiHex == "" || weiHex == "0x" || weiHex == "0x0" {
		return "0 ETH"
	}
	wei, err := hexutil.DecodeBig(weiHex)
	if err != nil {
		return weiHex
	}
	ether := new(big.Rat).SetFrac(wei, big.NewInt(1e18))
	s := strings.TrimRight(ether.FloatString(18), "0")
	s = strings.TrimRight(s, ".")
	if s == "" {
		s = "0"
	}
	return s + " ETH"
}

// formatData previews calldata: the first 20 characters, an ellipsis, and the
// byte count.
func formatData(data string) string {
	if data == "" || data == "0x" {
		return "(none)"
	}
	size := 0
	if len(data) > 2 {
		size = (len(data) - 2) / 2
	}
	preview := data
	if len(preview) > 20 {
		preview = preview[:20]
	}
	return fmt.Sprintf("%s… (%d bytes)", preview, size)
}
