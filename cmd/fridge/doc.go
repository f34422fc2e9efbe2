// Command fridge manages entries, items, stores and zones in the fridge
// database and can run the reminder passes by hand or as a daemon (serve).
package main
