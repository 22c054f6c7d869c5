package config

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
	NetworkRegtest = "regtest"
	NetworkSimnet  = "simnet"
	NetworkSignet  = "signet"
)

var networkParams = map[string]*chaincfg.Params{
	NetworkMainnet: &chaincfg.MainNetParams,
	NetworkTestnet: &chaincfg.TestNet3Params,
	NetworkRegtest: &chaincfg.RegressionNetParams,
	NetworkSimnet:  &chaincfg.SimNetParams,
	NetworkSignet:  &chaincfg.SigNetParams,
}

// ParamsForNetwork returns the chain parameters addresses are validated
// against for the named network.
func ParamsForNetwork(network string) (*chaincfg.Params, error) {
	params, ok := networkParams[network]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidNetwork, "%q", network)
	}
	return params, nil
}
