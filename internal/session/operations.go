package session

import (
	"encoding/json"
	"fmt"

	"repairmind/printagent/internal/printer"
)

// descriptorPayload converts a printer.Descriptor into the wire shape
// expected by register_printer.
func descriptorPayload(desc printer.Descriptor) map[string]interface{} {
	return map[string]interface{}{
		"systemName":  desc.SystemName,
		"displayName": desc.DisplayName,
		"type":        string(desc.Type),
		"transport":   string(desc.Transport),
		"capabilities": map[string]interface{}{
			"color":      desc.Capabilities.Color,
			"duplex":     desc.Capabilities.Duplex,
			"paperSizes": desc.Capabilities.PaperSizes,
			"maxWidthMm": desc.Capabilities.MaxWidthMm,
			"hasCutter":  desc.Capabilities.HasCutter,
			"hasCashDrawer": desc.Capabilities.HasCashDrawer,
		},
		"metadata": map[string]interface{}{
			"isDefault": desc.Metadata.IsDefault,
			"status":    desc.Metadata.Status,
			"portName":  desc.Metadata.PortName,
			"location":  desc.Metadata.Location,
			"comment":   desc.Metadata.Comment,
		},
	}
}

// RegisterPrinter sends register_printer and awaits printer_registered,
// caching the descriptor on success so it can be replayed after a
// reconnect.
func (s *Session) RegisterPrinter(desc printer.Descriptor) error {
	_, err := s.request(msgRegisterPrinter, descriptorPayload(desc), msgPrinterRegistered, msgError, defaultRequestTimeout)
	if err != nil {
		return fmt.Errorf("register printer %s: %w", desc.SystemName, err)
	}
	s.cache.put(desc)
	return nil
}

// UpdatePrinterStatus sends printer_status and awaits status_updated.
func (s *Session) UpdatePrinterStatus(printerID, status string, metadata map[string]interface{}) error {
	data := map[string]interface{}{
		"printerId": printerID,
		"status":    status,
		"metadata":  metadata,
	}
	_, err := s.request(msgPrinterStatus, data, msgStatusUpdated, msgError, defaultRequestTimeout)
	if err != nil {
		return fmt.Errorf("update printer status %s: %w", printerID, err)
	}
	return nil
}

// SendHeartbeat emits a heartbeat frame for printerID without
// awaiting heartbeat_ack. The periodic background loop sends its own
// heartbeat frames directly; this is for an orchestrator-driven one-off.
func (s *Session) SendHeartbeat(printerID string) error {
	return s.send(msgHeartbeat, map[string]interface{}{"printerId": printerID})
}

// GetAllPendingJobs asks the backend to resync this client's pending
// jobs. Per the recorded Open Question decision, the request always
// carries {clientId}, never {printerSystemName}: the orchestrator
// resyncs the whole client's backlog on reconnect, not one printer.
func (s *Session) GetAllPendingJobs() ([]WireJob, error) {
	reply, err := s.request(msgGetPendingJobs, map[string]interface{}{"clientId": s.cfg.ClientID}, msgPendingJobs, msgError, defaultRequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("get pending jobs: %w", err)
	}

	raw, err := json.Marshal(reply.Data["jobs"])
	if err != nil {
		return nil, fmt.Errorf("get pending jobs: re-marshal jobs field: %w", err)
	}
	var jobs []WireJob
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return nil, fmt.Errorf("get pending jobs: decode jobs field: %w", err)
	}
	return jobs, nil
}

// UpdateJobStatus sends job_status fire-and-forget, per §4.6 and the
// Open Question decision: awaiting an ack here would let concurrent
// updates for different jobs race on the single shared
// job_status_updated channel, so this never waits for one.
func (s *Session) UpdateJobStatus(jobID, status string, metadata map[string]interface{}) error {
	data := map[string]interface{}{
		"jobId":    jobID,
		"status":   status,
		"metadata": metadata,
	}
	return s.send(msgJobStatus, data)
}
