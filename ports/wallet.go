package ports

import "context"

// WalletConnector is the external wallet adapter.
type WalletConnector interface {
	// Connect asks the wallet to connect and returns the connected address.
	Connect(ctx context.Context) (string, error)
	// Disconnect drops the connection. It is a no-op when not connected.
	Disconnect(ctx context.Context) error
	// Address returns the connected address, if any.
	Address() (string, bool)
}
