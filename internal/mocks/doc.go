// Package mocks provides centralized mock implementations for testing.
//
// Each mock implements one interface with function fields for every method.
// When a function field is nil the mock falls back to a small in-memory
// implementation that honors the real contract, so most tests only override
// the behavior they exercise:
//
//	transport := &mocks.MockTransport{
//	    SendFn: func(ctx context.Context, msg mail.Message) (*mail.Result, error) {
//	        return &mail.Result{Success: false, Error: "mailbox full"}, nil
//	    },
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Document any helper methods or special functionality
package mocks
