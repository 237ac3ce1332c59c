// Package document serializes the aggregation tree into the final artifact:
// JSON text with configurable indentation and member filtering, optionally
// wrapped as an assignment such as "module.exports = {...};".
package document
