package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// OrderBookABI is the desk contract surface the gateway talks to.
const OrderBookABI = `[
  {"type":"function","name":"createOrder","stateMutability":"nonpayable",
   "inputs":[
     {"name":"symbol","type":"string"},
     {"name":"amount","type":"uint32"},
     {"name":"price","type":"uint32"},
     {"name":"orderType","type":"uint8"}],
   "outputs":[{"name":"orderId","type":"uint256"}]},
  {"type":"function","name":"cancelOrder","stateMutability":"nonpayable",
   "inputs":[{"name":"orderId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"getOrder","stateMutability":"view",
   "inputs":[{"name":"orderId","type":"uint256"}],
   "outputs":[
     {"name":"trader","type":"address"},
     {"name":"symbol","type":"string"},
     {"name":"orderType","type":"uint8"},
     {"name":"isActive","type":"bool"},
     {"name":"timestamp","type":"uint256"}]}
]`

const (
	methodCreate = "createOrder"
	methodCancel = "cancelOrder"
	methodGet    = "getOrder"
)

func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(OrderBookABI))
}
