package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// StateDigest hashes the replay-relevant state at the current tick.
func (w *World) StateDigest() string { return w.stateDigest(w.tick.Load()) }

func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteI64(h, &tmp, int64(w.levelIndex))
	h.Write([]byte{byte(w.trigger.Phase())})

	w.digestAgents(h, &tmp)
	w.digestPads(h, &tmp)
	w.digestCamera(h, &tmp)
	w.digestBullets(h, &tmp)
	w.digestPlates(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestAgents(h hashWriter, tmp *[8]byte) {
	agents := w.roster.Agents()
	digestWriteU64(h, tmp, uint64(len(agents)))
	for _, a := range agents {
		h.Write([]byte(a.ID))
		h.Write([]byte{0, byte(a.Kind), byte(a.State)})
		digestWriteF64(h, tmp, a.Pos.X)
		digestWriteF64(h, tmp, a.Pos.Y)
		digestWriteF64(h, tmp, a.Pos.Z)
		if tr := a.Transition; tr != nil {
			h.Write([]byte{1, byte(tr.Cause)})
			digestWriteI64(h, tmp, int64(tr.Elapsed))
		} else {
			h.Write([]byte{0})
		}
	}
}

func (w *World) digestPads(h hashWriter, tmp *[8]byte) {
	b := w.cloning.Budget()
	digestWriteI64(h, tmp, int64(b.MaxClones))
	digestWriteI64(h, tmp, int64(b.MissingClones))
	h.Write([]byte{boolByte(b.CloningAllowed), boolByte(b.HasCloned)})
	for _, p := range w.cloning.Pads() {
		h.Write([]byte(p.ID))
		h.Write([]byte{0, boolByte(p.Activated)})
	}
}

func (w *World) digestCamera(h hashWriter, tmp *[8]byte) {
	t := w.camera.Snapshot()
	h.Write([]byte(t.PrimaryID))
	h.Write([]byte{0, boolByte(t.Valid)})
	digestWriteF64(h, tmp, t.Zoom)
}

func (w *World) digestBullets(h hashWriter, tmp *[8]byte) {
	for _, b := range w.hazards.Pool().Active() {
		h.Write([]byte(b.ID))
		digestWriteF64(h, tmp, b.Pos.X)
		digestWriteF64(h, tmp, b.Pos.Y)
		digestWriteF64(h, tmp, b.Pos.Z)
	}
}

func (w *World) digestPlates(h hashWriter, tmp *[8]byte) {
	for _, p := range w.hazards.Plates() {
		h.Write([]byte(p.ID))
		h.Write([]byte{0, boolByte(p.Used()), boolByte(p.Open())})
		digestWriteI64(h, tmp, int64(p.Remaining()))
	}
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
