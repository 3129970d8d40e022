package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	hubpkg "guildmaster/server/internal/net"
	"guildmaster/server/internal/net/proto"
	"guildmaster/server/internal/sim"
)

const keyframeReadTimeout = 500 * time.Millisecond

// serve runs the session read loop until the connection drops. Every command
// carrying a sequence number is answered with an ack or a reject; duplicates
// are re-acked without re-staging.
func (h *Handler) serve(token string, conn *websocket.Conn, sub *hubpkg.Subscriber) {
	var lastCommandSeq uint32

	disconnect := func() {
		h.hub.Disconnect(token)
	}

	write := func(data []byte) bool {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			disconnect()
			return false
		}
		return true
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			disconnect()
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("[ws] discarding malformed message session=%s: %v", token, err)
			continue
		}

		if msg.Ack != nil {
			h.hub.RecordAck(token, *msg.Ack)
		}

		switch msg.Type {
		case proto.TypeHeartbeat:
			now := time.Now()
			rtt, ok := h.hub.UpdateHeartbeat(token, now, msg.SentAt)
			if !ok {
				continue
			}
			data, err := proto.EncodeHeartbeat(proto.Heartbeat{
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			})
			if err != nil {
				h.logger.Printf("[ws] failed to marshal heartbeat ack session=%s: %v", token, err)
				continue
			}
			if !write(data) {
				return
			}

		case proto.TypeKeyframeReq:
			if msg.KeyframeTick == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), keyframeReadTimeout)
			frame, nack := h.hub.Keyframe(ctx, *msg.KeyframeTick)
			cancel()
			var data []byte
			if nack != nil {
				data, err = proto.EncodeKeyframeNack(*nack)
			} else {
				data, err = proto.EncodeKeyframeMessageV1(frame)
			}
			if err != nil {
				h.logger.Printf("[ws] failed to marshal keyframe session=%s: %v", token, err)
				continue
			}
			if !write(data) {
				return
			}

		default:
			if msg.Seq > 0 && msg.Seq <= lastCommandSeq {
				data, err := proto.EncodeCommandAck(proto.CommandAck{Seq: msg.Seq})
				if err != nil {
					continue
				}
				if !write(data) {
					return
				}
				continue
			}

			cmd, ok, reason := h.hub.StageCommand(token, msg)
			if msg.Seq == 0 {
				continue
			}
			if ok {
				if msg.Seq > lastCommandSeq {
					lastCommandSeq = msg.Seq
				}
				data, err := proto.EncodeCommandAck(proto.CommandAck{Seq: msg.Seq, Tick: cmd.OriginTick})
				if err != nil {
					continue
				}
				if !write(data) {
					return
				}
			} else {
				retry := reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull
				data, err := proto.EncodeCommandReject(proto.CommandReject{
					Seq:    msg.Seq,
					Reason: reason,
					Retry:  retry,
				})
				if err != nil {
					continue
				}
				if !write(data) {
					return
				}
			}
		}
	}
}
