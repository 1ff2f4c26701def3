package wire

// Serve loops reading requests off conn and answering them through
// router until conn errors or closes. Used on the dialing side of a
// REQ/REP-shaped relationship where the peer is the one issuing requests
// — the worker pool's surveyor and per-bar dispatch both call into a
// worker this way.
func Serve(conn *Conn, router *Router) error {
	for {
		req, err := conn.Recv()
		if err != nil {
			return err
		}
		resp := router.Dispatch(req)
		if err := conn.SendResponse(resp); err != nil {
			return err
		}
	}
}
