/*
Core implements the quoting and hedging decision engine.

# Module
  - market tracker: latest top of book of the Future (reference) and the ETF (quoted)
  - order ledger: at most one active quote per side, reservation reconciliation
  - hedge manager: one hedge in the Future for every quote fill
  - risk engine: position and unhedged exposure limits checked before every insert

# Source
 1. decoded events from the execution and information transports
 2. simulated venue in paper trading
 3. WAL replay

# Produce
  - intents (insert, cancel, hedge) to the order gateway

# Threading
  - Engine is owned by one goroutine; events are handled to completion in arrival order
*/
package core
