package rows

// Merge reconciles freshly fetched server rows into the local collection
// without discarding uncommitted edits.
//
// Local rows keep their order. A row whose position is pending keeps its
// local content, and its server id (if any) is consumed so the server copy
// is not appended again. An untracked row is replaced by the server row
// with the same id, keeping the local uid; without a match it is kept as
// is. Server rows that were never consumed are appended in server order
// with uids from newUID.
func Merge[T Record[T]](server, local []T, pending PendingState, newUID func() string) []T {
	tracked := make(map[int]struct{}, len(pending.Modified)+len(pending.New))
	for _, p := range pending.Union() {
		tracked[p] = struct{}{}
	}

	byID := make(map[int64]T, len(server))
	for _, row := range server {
		if id := row.RowID(); id != 0 {
			byID[id] = row
		}
	}
	consumed := make(map[int64]struct{}, len(server))

	merged := make([]T, 0, len(local)+len(server))
	for pos, row := range local {
		id := row.RowID()
		if _, ok := tracked[pos]; ok {
			if id != 0 {
				consumed[id] = struct{}{}
			}
			merged = append(merged, row)
			continue
		}
		if fresh, ok := byID[id]; ok && id != 0 {
			if _, dup := consumed[id]; !dup {
				consumed[id] = struct{}{}
				merged = append(merged, fresh.WithUID(row.RowUID()))
				continue
			}
		}
		merged = append(merged, row)
	}

	for _, row := range server {
		id := row.RowID()
		if id != 0 {
			if _, ok := consumed[id]; ok {
				continue
			}
			consumed[id] = struct{}{}
		}
		merged = append(merged, row.WithUID(newUID()))
	}
	return merged
}

// Replace adopts the server rows wholesale. Rows already known locally by
// id keep their uid; the rest get a fresh one. Each local uid is handed
// out once, so a repeated server id still yields unique uids.
func Replace[T Record[T]](server, local []T, newUID func() string) []T {
	uids := make(map[int64]string, len(local))
	for _, row := range local {
		if id := row.RowID(); id != 0 {
			uids[id] = row.RowUID()
		}
	}
	out := make([]T, len(server))
	for i, row := range server {
		uid, ok := uids[row.RowID()]
		if ok && row.RowID() != 0 {
			delete(uids, row.RowID())
		} else {
			uid = newUID()
		}
		out[i] = row.WithUID(uid)
	}
	return out
}
