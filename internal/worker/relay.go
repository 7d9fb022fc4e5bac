package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	// The publication is created by the migrations; the slot is temporary so
	// a crashed worker never leaves WAL pinned behind.
	publicationName = "docshelf_outbox"
	slotName        = "docshelf_outbox"

	standbyMessageTimeout = 10 * time.Second
)

// relay streams outbox inserts over logical replication and republishes them
// to NATS. The subject is the row's event_name column, the payload its data
// column, so the outbox table fully determines what the worker sees.
type relay struct {
	conn *pgconn.PgConn
	nc   *nats.Conn
}

func newRelay(ctx context.Context, databaseURL string, nc *nats.Conn) (*relay, error) {
	conn, err := pgconn.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect replication: %w", err)
	}
	return &relay{conn: conn, nc: nc}, nil
}

func (r *relay) close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *relay) run(ctx context.Context) error {
	sysident, err := pglogrepl.IdentifySystem(ctx, r.conn)
	if err != nil {
		return fmt.Errorf("identify system: %w", err)
	}

	_, err = pglogrepl.CreateReplicationSlot(ctx, r.conn, slotName, "pgoutput",
		pglogrepl.CreateReplicationSlotOptions{Temporary: true})
	if err != nil {
		return fmt.Errorf("create replication slot: %w", err)
	}

	err = pglogrepl.StartReplication(ctx, r.conn, slotName, sysident.XLogPos,
		pglogrepl.StartReplicationOptions{PluginArgs: []string{
			"proto_version '2'",
			fmt.Sprintf("publication_names '%s'", publicationName),
			"messages 'true'",
			"streaming 'true'",
		}})
	if err != nil {
		return fmt.Errorf("start replication: %w", err)
	}
	zap.L().Info("outbox relay started", zap.String("slot", slotName))

	clientXLogPos := sysident.XLogPos
	nextStandbyMessageDeadline := time.Now().Add(standbyMessageTimeout)
	relations := map[uint32]*pglogrepl.RelationMessageV2{}
	typeMap := pgtype.NewMap()
	inStream := false

	for {
		if time.Now().After(nextStandbyMessageDeadline) {
			err = pglogrepl.SendStandbyStatusUpdate(ctx, r.conn,
				pglogrepl.StandbyStatusUpdate{WALWritePosition: clientXLogPos})
			if err != nil {
				return fmt.Errorf("send standby status: %w", err)
			}
			nextStandbyMessageDeadline = time.Now().Add(standbyMessageTimeout)
		}

		rctx, cancel := context.WithDeadline(ctx, nextStandbyMessageDeadline)
		rawMsg, err := r.conn.ReceiveMessage(rctx)
		cancel()
		if err != nil {
			if pgconn.Timeout(err) {
				if ctx.Err() != nil {
					return nil
				}
				continue
			}

			// Closed by shutdown.
			var pgConnErr *pgconn.ConnectError
			if errors.As(err, &pgConnErr) {
				return nil
			}

			return fmt.Errorf("receive replication message: %w", err)
		}

		if errMsg, ok := rawMsg.(*pgproto3.ErrorResponse); ok {
			return fmt.Errorf("postgres WAL error: %+v", errMsg)
		}

		msg, ok := rawMsg.(*pgproto3.CopyData)
		if !ok {
			zap.L().Warn("unexpected replication message", zap.String("type", fmt.Sprintf("%T", rawMsg)))
			continue
		}

		switch msg.Data[0] {
		case pglogrepl.PrimaryKeepaliveMessageByteID:
			pkm, err := pglogrepl.ParsePrimaryKeepaliveMessage(msg.Data[1:])
			if err != nil {
				return fmt.Errorf("parse keepalive: %w", err)
			}
			if pkm.ServerWALEnd > clientXLogPos {
				clientXLogPos = pkm.ServerWALEnd
			}
			if pkm.ReplyRequested {
				nextStandbyMessageDeadline = time.Time{}
			}

		case pglogrepl.XLogDataByteID:
			xld, err := pglogrepl.ParseXLogData(msg.Data[1:])
			if err != nil {
				return fmt.Errorf("parse xlog data: %w", err)
			}

			if err := r.forward(xld.WALData, relations, typeMap, &inStream); err != nil {
				return err
			}

			if xld.WALStart > clientXLogPos {
				clientXLogPos = xld.WALStart
			}
		}
	}
}

// forward decodes one logical replication message and publishes outbox
// inserts to NATS.
func (r *relay) forward(walData []byte, relations map[uint32]*pglogrepl.RelationMessageV2, typeMap *pgtype.Map, inStream *bool) error {
	logicalMsg, err := pglogrepl.ParseV2(walData, *inStream)
	if err != nil {
		return fmt.Errorf("parse logical replication message: %w", err)
	}

	switch logicalMsg := logicalMsg.(type) {
	case *pglogrepl.RelationMessageV2:
		relations[logicalMsg.RelationID] = logicalMsg

	case *pglogrepl.InsertMessageV2:
		rel, ok := relations[logicalMsg.RelationID]
		if !ok {
			return fmt.Errorf("unknown relation ID %d", logicalMsg.RelationID)
		}

		values := map[string]string{}
		for idx, col := range logicalMsg.Tuple.Columns {
			colName := rel.Columns[idx].Name
			if col.DataType != 't' { // only text-format columns carry data
				continue
			}
			val, err := decodeTextColumnData(typeMap, col.Data, rel.Columns[idx].DataType)
			if err != nil {
				return fmt.Errorf("decode column %s: %w", colName, err)
			}
			values[colName] = val
		}

		subject := values["event_name"]
		if subject == "" {
			zap.L().Warn("outbox row without event_name, skipping")
			return nil
		}
		if err := r.nc.Publish(subject, []byte(values["data"])); err != nil {
			zap.L().Error("publish task event", zap.String("subject", subject), zap.Error(err))
			return nil
		}
		zap.L().Info("task event published",
			zap.String("subject", subject),
			zap.String("object_id", values["object_id"]))

	case *pglogrepl.StreamStartMessageV2:
		*inStream = true
	case *pglogrepl.StreamStopMessageV2:
		*inStream = false
	}

	return nil
}

func decodeTextColumnData(mi *pgtype.Map, data []byte, dataType uint32) (string, error) {
	if dt, ok := mi.TypeForOID(dataType); ok {
		val, err := dt.Codec.DecodeValue(mi, dataType, pgtype.TextFormatCode, data)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v", val), nil
	}
	return string(data), nil
}
