package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("chain")

// Config configures the Diamond contract client.
type Config struct {
	RPCURL          string
	ContractAddress string
	AdminPrivateKey string
	ChainID         int64 // 0 asks the node on first transaction
	TxTimeout       time.Duration
	ExplorerTxURL   string
}

// Client reaches the Diamond proxy through the merged facet ABI.
type Client struct {
	eth       *ethclient.Client
	address   common.Address
	key       *ecdsa.PrivateKey
	loader    *ABILoader
	txTimeout time.Duration
	explorer  string

	mu      sync.Mutex
	chainID *big.Int
}

// NewClient dials the RPC endpoint. Dialing an HTTP endpoint does not contact
// the node, so a down node surfaces on the first call rather than at startup.
func NewClient(ctx context.Context, cfg Config, loader *ABILoader) (*Client, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.AdminPrivateKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse admin private key")
	}
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial rpc")
	}
	c := &Client{
		eth:       eth,
		address:   common.HexToAddress(cfg.ContractAddress),
		key:       key,
		loader:    loader,
		txTimeout: cfg.TxTimeout,
		explorer:  cfg.ExplorerTxURL,
	}
	if cfg.ChainID != 0 {
		c.chainID = big.NewInt(cfg.ChainID)
	}
	if c.txTimeout <= 0 {
		c.txTimeout = 2 * time.Minute
	}
	return c, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// AdminAddress is the account that signs admin transactions.
func (c *Client) AdminAddress() string {
	return strings.ToLower(crypto.PubkeyToAddress(c.key.PublicKey).Hex())
}

func (c *Client) ExplorerURL(txHash string) string {
	if c.explorer == "" {
		return ""
	}
	return c.explorer + txHash
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// ShopkeeperInfo calls getShopkeeperInfo. A zero ShopkeeperAddress means the
// wallet is not registered.
func (c *Client) ShopkeeperInfo(ctx context.Context, wallet string) (*domain.ShopkeeperRecord, error) {
	r, err := c.call(ctx, "getShopkeeperInfo", common.HexToAddress(wallet))
	if err != nil {
		return nil, err
	}
	rec := shopkeeperRecord(r)
	if zeroAddress(rec.ShopkeeperAddress) {
		rec.ShopkeeperAddress = ""
	}
	return rec, nil
}

// DeliveryAgentInfo calls getDeliveryAgentInfo.
func (c *Client) DeliveryAgentInfo(ctx context.Context, wallet string) (*domain.DeliveryAgentRecord, error) {
	r, err := c.call(ctx, "getDeliveryAgentInfo", common.HexToAddress(wallet))
	if err != nil {
		return nil, err
	}
	rec := deliveryAgentRecord(r)
	if zeroAddress(rec.AgentAddress) {
		rec.AgentAddress = ""
	}
	return rec, nil
}

// ConsumerByAadhaar calls getConsumerByAadhaar.
func (c *Client) ConsumerByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerRecord, error) {
	n, err := parseUint(aadhaar, "aadhaar")
	if err != nil {
		return nil, err
	}
	r, err := c.call(ctx, "getConsumerByAadhaar", n)
	if err != nil {
		return nil, err
	}
	return consumerRecord(r), nil
}

// CategoryStats reads getCategoryWiseStats, whose three parallel arrays hold
// category names, consumer counts and ration amounts.
func (c *Client) CategoryStats(ctx context.Context) ([]domain.CategoryStat, error) {
	_, out, err := c.callValues(ctx, "getCategoryWiseStats")
	if err != nil {
		return nil, err
	}
	return categoryStats(out), nil
}

// ── Writes ────────────────────────────────────────────────────────────────────

func (c *Client) RegisterShopkeeper(ctx context.Context, wallet, name, area string) (*domain.TxResult, error) {
	receipt, err := c.transact(ctx, "registerShopkeeper", common.HexToAddress(wallet), name, area)
	if err != nil {
		return nil, err
	}
	return c.result(receipt), nil
}

func (c *Client) RegisterDeliveryAgent(ctx context.Context, wallet, name, mobile string) (*domain.TxResult, error) {
	receipt, err := c.transact(ctx, "registerDeliveryAgent", common.HexToAddress(wallet), name, mobile)
	if err != nil {
		return nil, err
	}
	return c.result(receipt), nil
}

func (c *Client) AssignDeliveryAgentToShopkeeper(ctx context.Context, agent, shopkeeper string) (*domain.TxResult, error) {
	receipt, err := c.transact(ctx, "assignDeliveryAgentToShopkeeper", common.HexToAddress(agent), common.HexToAddress(shopkeeper))
	if err != nil {
		return nil, err
	}
	return c.result(receipt), nil
}

func (c *Client) RegisterConsumer(ctx context.Context, aadhaar, name, mobile, category, shopkeeper string) (*domain.TxResult, error) {
	n, err := parseUint(aadhaar, "aadhaar")
	if err != nil {
		return nil, err
	}
	receipt, err := c.transact(ctx, "registerConsumer", n, name, mobile, category, common.HexToAddress(shopkeeper))
	if err != nil {
		return nil, err
	}
	return c.result(receipt), nil
}

// AssignRationPickup schedules a pickup and returns the pickup id emitted in
// RationPickupAssigned. The id is empty when the event is absent from the receipt.
func (c *Client) AssignRationPickup(ctx context.Context, req domain.AssignPickupRequest) (string, *domain.TxResult, error) {
	receipt, err := c.transact(ctx, "assignRationPickup",
		common.HexToAddress(req.DeliveryAgent),
		common.HexToAddress(req.Shopkeeper),
		new(big.Int).SetUint64(req.RationAmount),
		req.Category,
		req.PickupLocation,
		req.DeliveryInstructions,
	)
	if err != nil {
		return "", nil, err
	}
	parsed, err := c.loader.Load(ctx)
	if err != nil {
		return "", c.result(receipt), nil
	}
	return pickupIDFromLogs(parsed, receipt.Logs), c.result(receipt), nil
}

func (c *Client) MarkRationDeliveredByAadhaar(ctx context.Context, aadhaar, tokenID string) (*domain.TxResult, error) {
	a, err := parseUint(aadhaar, "aadhaar")
	if err != nil {
		return nil, err
	}
	t, err := parseUint(tokenID, "tokenId")
	if err != nil {
		return nil, err
	}
	receipt, err := c.transact(ctx, "markRationDeliveredByAadhaar", a, t)
	if err != nil {
		return nil, err
	}
	return c.result(receipt), nil
}

func (c *Client) ConfirmRationReceipt(ctx context.Context, pickupID string) (*domain.TxResult, error) {
	id, err := parseUint(pickupID, "pickupId")
	if err != nil {
		return nil, err
	}
	receipt, err := c.transact(ctx, "confirmRationReceipt", id)
	if err != nil {
		return nil, err
	}
	return c.result(receipt), nil
}

// Receipt fetches a mined transaction's receipt.
func (c *Client) Receipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, classify("eth_getTransactionReceipt", err)
	}
	return receipt, nil
}

// ── Plumbing ──────────────────────────────────────────────────────────────────

func (c *Client) bound(ctx context.Context, method string) (*bind.BoundContract, abi.ABI, error) {
	parsed, err := c.loader.Load(ctx)
	if err != nil {
		return nil, abi.ABI{}, err
	}
	if _, ok := parsed.Methods[method]; !ok {
		return nil, abi.ABI{}, errors.WithStack(&CallError{
			Method: method,
			Kind:   ErrSelectorMissing,
			Reason: "not present in merged ABI",
		})
	}
	return bind.NewBoundContract(c.address, parsed, c.eth, c.eth, c.eth), parsed, nil
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) (record, error) {
	m, out, err := c.callValues(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return decodeOutputs(m, out), nil
}

// callValues runs a view method and returns its outputs in ABI order.
func (c *Client) callValues(ctx context.Context, method string, args ...interface{}) (abi.Method, []interface{}, error) {
	ctx, span := tracer.Start(ctx, "Chain.Client.Call")
	defer span.End()
	span.SetAttributes(attribute.String("method", method))

	contract, parsed, err := c.bound(ctx, method)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return abi.Method{}, nil, err
	}
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		err = classify(method, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return abi.Method{}, nil, err
	}
	return parsed.Methods[method], out, nil
}

// transact signs with the admin key, sends, and waits for one confirmation.
// A mined but failed transaction is reported as ErrReverted.
func (c *Client) transact(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Chain.Client.Transact")
	defer span.End()
	span.SetAttributes(attribute.String("method", method))

	fail := func(err error) (*types.Receipt, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	contract, _, err := c.bound(ctx, method)
	if err != nil {
		return fail(err)
	}
	chainID, err := c.resolveChainID(ctx)
	if err != nil {
		return fail(classify(method, err))
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, chainID)
	if err != nil {
		return fail(errors.Wrap(err, "build transactor"))
	}
	opts.Context = ctx

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return fail(classify(method, err))
	}
	span.SetAttributes(attribute.String("tx_hash", tx.Hash().Hex()))

	waitCtx, cancel := context.WithTimeout(ctx, c.txTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.eth, tx)
	if err != nil {
		return fail(errors.WithStack(&CallError{
			Method: method,
			Kind:   ErrUnavailable,
			Reason: "waiting for " + tx.Hash().Hex() + ": " + err.Error(),
			TxHash: tx.Hash().Hex(),
			Err:    err,
		}))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fail(errors.WithStack(&CallError{
			Method: method,
			Kind:   ErrReverted,
			Reason: "transaction " + tx.Hash().Hex() + " failed",
			TxHash: tx.Hash().Hex(),
		}))
	}
	return receipt, nil
}

func (c *Client) resolveChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID != nil {
		return c.chainID, nil
	}
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	c.chainID = id
	return id, nil
}

func (c *Client) result(receipt *types.Receipt) *domain.TxResult {
	hash := receipt.TxHash.Hex()
	res := &domain.TxResult{TxHash: hash, ExplorerURL: c.ExplorerURL(hash)}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res
}

func pickupIDFromLogs(parsed abi.ABI, logs []*types.Log) string {
	event, ok := parsed.Events["RationPickupAssigned"]
	if !ok {
		return ""
	}
	for _, l := range logs {
		if l == nil || len(l.Topics) == 0 || l.Topics[0] != event.ID {
			continue
		}
		fields := map[string]interface{}{}
		if len(l.Data) > 0 {
			if err := parsed.UnpackIntoMap(fields, event.Name, l.Data); err != nil {
				continue
			}
		}
		var indexed abi.Arguments
		for _, arg := range event.Inputs {
			if arg.Indexed {
				indexed = append(indexed, arg)
			}
		}
		if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
			continue
		}
		if id, ok := fields["pickupId"].(*big.Int); ok {
			return id.String()
		}
	}
	return ""
}

func parseUint(s, field string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, errors.Wrapf(domain.ErrInvalidFormat, "%s must be a non-negative integer", field)
	}
	return n, nil
}
