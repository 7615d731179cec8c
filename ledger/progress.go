package ledger

// DownloadShare is the share of overall bootstrap progress taken by the
// download phase.
const DownloadShare = 50

// DownloadProgress maps a processed height to overall progress:
// floor(100*(height-start)/(end-start)/2), computed in integers. For heights
// in [start, end) the result is in [0, DownloadShare). Callers must ensure
// start < end and start <= height.
func DownloadProgress(height, start, end uint32) uint32 {
	done := uint64(height - start)
	total := uint64(end - start)
	return uint32(100 * done / total / 2)
}
