package chain

import (
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/grainlyyy/pds-api/internal/domain"
)

// record is a decoded contract return value keyed by ABI output name.
type record map[string]interface{}

// decodeOutputs names the values returned by contract.Call. A single tuple
// output (a Solidity struct) is flattened into its fields.
func decodeOutputs(method abi.Method, out []interface{}) record {
	r := record{}
	if len(method.Outputs) == 1 && method.Outputs[0].Type.T == abi.TupleTy && len(out) == 1 {
		flattenStruct(r, reflect.ValueOf(out[0]))
		return r
	}
	for i, arg := range method.Outputs {
		if i >= len(out) {
			break
		}
		name := arg.Name
		if name == "" {
			name = "out" + strconv.Itoa(i)
		}
		r[name] = out[i]
	}
	return r
}

// flattenStruct reads the struct go-ethereum builds for tuples, whose fields
// carry the ABI component name in their json tag.
func flattenStruct(r record, v reflect.Value) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("json")
		if name == "" {
			name = strings.ToLower(f.Name[:1]) + f.Name[1:]
		}
		r[name] = v.Field(i).Interface()
	}
}

func (r record) address(keys ...string) string {
	for _, k := range keys {
		if a, ok := r[k].(common.Address); ok {
			return strings.ToLower(a.Hex())
		}
	}
	return ""
}

func (r record) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := r[k].(string); ok {
			return s
		}
	}
	return ""
}

func (r record) boolean(key string) bool {
	b, _ := r[key].(bool)
	return b
}

func (r record) uint(keys ...string) uint64 {
	for _, k := range keys {
		switch n := r[k].(type) {
		case *big.Int:
			if n != nil {
				return n.Uint64()
			}
		case uint8:
			return uint64(n)
		case uint16:
			return uint64(n)
		case uint32:
			return uint64(n)
		case uint64:
			return n
		}
	}
	return 0
}

func (r record) bigString(key string) string {
	if n, ok := r[key].(*big.Int); ok && n != nil {
		return n.String()
	}
	return ""
}

func zeroAddress(addr string) bool {
	return addr == "" || common.HexToAddress(addr) == (common.Address{})
}

func shopkeeperRecord(r record) *domain.ShopkeeperRecord {
	return &domain.ShopkeeperRecord{
		ShopkeeperAddress:      r.address("shopkeeperAddress", "shopkeeper"),
		Name:                   r.str("name"),
		Area:                   r.str("area"),
		Mobile:                 r.str("mobile"),
		RegistrationTime:       int64(r.uint("registrationTime")),
		TotalConsumersAssigned: r.uint("totalConsumersAssigned"),
		TotalTokensIssued:      r.uint("totalTokensIssued"),
		TotalDeliveries:        r.uint("totalDeliveries"),
		IsActive:               r.boolean("isActive"),
	}
}

func deliveryAgentRecord(r record) *domain.DeliveryAgentRecord {
	return &domain.DeliveryAgentRecord{
		AgentAddress:       r.address("agentAddress", "deliveryAgent"),
		Name:               r.str("name", "agentName"),
		Mobile:             r.str("mobile"),
		AssignedShopkeeper: r.address("assignedShopkeeper"),
		TotalDeliveries:    r.uint("totalDeliveries"),
		RegistrationTime:   int64(r.uint("registrationTime")),
		IsActive:           r.boolean("isActive"),
	}
}

func consumerRecord(r record) *domain.ConsumerRecord {
	aadhaar := r.bigString("aadhaar")
	if aadhaar == "0" {
		aadhaar = ""
	}
	return &domain.ConsumerRecord{
		Aadhaar:             aadhaar,
		Name:                r.str("name"),
		Mobile:              r.str("mobile"),
		Category:            r.str("category"),
		AssignedShopkeeper:  r.address("assignedShopkeeper"),
		TotalTokensReceived: r.uint("totalTokensReceived"),
		TotalTokensClaimed:  r.uint("totalTokensClaimed"),
		RegistrationTime:    int64(r.uint("registrationTime")),
		IsActive:            r.boolean("isActive"),
	}
}

// categoryStats zips the category, count and amount arrays. A short count or
// amount array leaves the missing values zero.
func categoryStats(out []interface{}) []domain.CategoryStat {
	if len(out) == 0 {
		return nil
	}
	names, _ := out[0].([]string)
	var counts, amounts []*big.Int
	if len(out) > 1 {
		counts, _ = out[1].([]*big.Int)
	}
	if len(out) > 2 {
		amounts, _ = out[2].([]*big.Int)
	}
	stats := make([]domain.CategoryStat, 0, len(names))
	for i, name := range names {
		st := domain.CategoryStat{Category: name}
		if i < len(counts) && counts[i] != nil {
			st.Consumers = counts[i].Uint64()
		}
		if i < len(amounts) && amounts[i] != nil {
			st.Amount = amounts[i].Uint64()
		}
		stats = append(stats, st)
	}
	return stats
}
