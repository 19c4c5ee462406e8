package state

var (
	DBG_log_router = false
	DBG_log_table  = false
	DBG_debug      = false
	DBG_debug_addr = "127.0.0.1:6060"
)
