// Command iotconfig is a client for the IoT configuration service.
//
// It manages organizations, routes, EUI pairs, devaddr ranges, session key
// filters and regional channel plans. Every state-changing request is
// signed with the operator's keypair.
//
// Usage:
//
//	iotconfig [--config iotconfig.yaml] <command> [flags]
//
// Examples:
//
//	# Create a keypair and record the settings
//	iotconfig env generate-keypair ./keypair.bin
//	iotconfig env init --commit
//
//	# Decompose a devaddr range into aligned blocks
//	iotconfig subnet-mask 48000800 48000FFF
//
//	# Preview, then send, a new route
//	iotconfig route new --oui 4
//	iotconfig route new --oui 4 --commit
//
//	# Capture the protocol exchange and inspect it
//	iotconfig --protocol-log session.clog route list --oui 4
//	iotconfig capture view session.clog
package main

import "github.com/iotconfig/iotconfig-go/cmd/iotconfig/commands"

func main() {
	commands.Execute()
}
