// Package util holds small cross-cutting helpers.
package util

// MaskCustomerID redacts the middle of a customer id before it reaches logs.
// Short ids are returned unchanged since masking them would leak nothing less.
func MaskCustomerID(customerID string) string {
	if len(customerID) <= 6 {
		return customerID
	}
	return customerID[:3] + "***" + customerID[len(customerID)-2:]
}
