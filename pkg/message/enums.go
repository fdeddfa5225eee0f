package message

// OperationType identifies the inner payload carried by an envelope.
// Values are fixed by the bridge firmware and must not be renumbered.
type OperationType uint32

const (
	OpNoOperation OperationType = 0

	OpSetAddressRequest         OperationType = 1
	OpRegisterAppRequest        OperationType = 2
	OpStartSessionRequest       OperationType = 3
	OpCloseSessionRequest       OperationType = 4
	OpListRegisteredAppsRequest OperationType = 5
	OpDeregisterAppRequest      OperationType = 6
	OpChangePinRequest          OperationType = 7
	OpGetRemoteAccessIDRequest  OperationType = 8
	OpSetRemoteAccessIDRequest  OperationType = 9
	OpGetSupportIDRequest       OperationType = 10
	OpSetSupportIDRequest       OperationType = 11
	OpGetWebIDRequest           OperationType = 12
	OpSetWebIDRequest           OperationType = 13
	OpSetPushIDRequest          OperationType = 14
	OpDebugRequest              OperationType = 15
	OpUpgradeRequest            OperationType = 16
	OpSetDeviceSettingsRequest  OperationType = 17
	OpVersionRequest            OperationType = 18

	OpCnTimeRequest       OperationType = 30
	OpCnTimeConfirm       OperationType = 31
	OpCnNodeNotification  OperationType = 32
	OpCnRmiRequest        OperationType = 33
	OpCnRmiResponse       OperationType = 34
	OpCnRmiAsyncRequest   OperationType = 35
	OpCnRmiAsyncConfirm   OperationType = 36
	OpCnRmiAsyncResponse  OperationType = 37
	OpCnRpdoRequest       OperationType = 38
	OpCnRpdoConfirm       OperationType = 39
	OpCnRpdoNotification  OperationType = 40
	OpCnAlarmNotification OperationType = 41
	OpCnNodeRequest       OperationType = 42

	OpSetAddressConfirm         OperationType = 51
	OpRegisterAppConfirm        OperationType = 52
	OpStartSessionConfirm       OperationType = 53
	OpCloseSessionConfirm       OperationType = 54
	OpListRegisteredAppsConfirm OperationType = 55
	OpDeregisterAppConfirm      OperationType = 56
	OpChangePinConfirm          OperationType = 57
	OpGetRemoteAccessIDConfirm  OperationType = 58
	OpSetRemoteAccessIDConfirm  OperationType = 59
	OpGetSupportIDConfirm       OperationType = 60
	OpSetSupportIDConfirm       OperationType = 61
	OpGetWebIDConfirm           OperationType = 62
	OpSetWebIDConfirm           OperationType = 63
	OpSetPushIDConfirm          OperationType = 64
	OpDebugConfirm              OperationType = 65
	OpUpgradeConfirm            OperationType = 66
	OpSetDeviceSettingsConfirm  OperationType = 67
	OpVersionConfirm            OperationType = 68

	OpCnFupReadRegisterRequest OperationType = 70
	OpCnFupReadRegisterConfirm OperationType = 71
	OpCnFupProgramBeginRequest OperationType = 72
	OpCnFupProgramBeginConfirm OperationType = 73
	OpCnFupProgramRequest      OperationType = 74
	OpCnFupProgramConfirm      OperationType = 75
	OpCnFupProgramEndRequest   OperationType = 76
	OpCnFupProgramEndConfirm   OperationType = 77
	OpCnFupReadRequest         OperationType = 78
	OpCnFupReadConfirm         OperationType = 79
	OpCnFupResetRequest        OperationType = 80
	OpCnFupResetConfirm        OperationType = 81
	OpCnWhoAmIRequest          OperationType = 82
	OpCnWhoAmIConfirm          OperationType = 83

	OpGatewayNotification OperationType = 100
	OpKeepAlive           OperationType = 101
	OpFactoryReset        OperationType = 102

	OpWiFiSettingsRequest    OperationType = 120
	OpWiFiSettingsConfirm    OperationType = 121
	OpWiFiNetworksRequest    OperationType = 122
	OpWiFiNetworksConfirm    OperationType = 123
	OpWiFiJoinNetworkRequest OperationType = 124
	OpWiFiJoinNetworkConfirm OperationType = 125
)

// expectedReplies maps each request operation to the single operation type
// the bridge answers it with. The session layer uses this to validate
// correlated replies.
var expectedReplies = map[OperationType]OperationType{
	OpSetAddressRequest:         OpSetAddressConfirm,
	OpRegisterAppRequest:        OpRegisterAppConfirm,
	OpStartSessionRequest:       OpStartSessionConfirm,
	OpCloseSessionRequest:       OpCloseSessionConfirm,
	OpListRegisteredAppsRequest: OpListRegisteredAppsConfirm,
	OpDeregisterAppRequest:      OpDeregisterAppConfirm,
	OpChangePinRequest:          OpChangePinConfirm,
	OpGetRemoteAccessIDRequest:  OpGetRemoteAccessIDConfirm,
	OpSetRemoteAccessIDRequest:  OpSetRemoteAccessIDConfirm,
	OpGetSupportIDRequest:       OpGetSupportIDConfirm,
	OpSetSupportIDRequest:       OpSetSupportIDConfirm,
	OpGetWebIDRequest:           OpGetWebIDConfirm,
	OpSetWebIDRequest:           OpSetWebIDConfirm,
	OpSetPushIDRequest:          OpSetPushIDConfirm,
	OpDebugRequest:              OpDebugConfirm,
	OpUpgradeRequest:            OpUpgradeConfirm,
	OpSetDeviceSettingsRequest:  OpSetDeviceSettingsConfirm,
	OpVersionRequest:            OpVersionConfirm,
	OpCnTimeRequest:             OpCnTimeConfirm,
	OpCnRmiRequest:              OpCnRmiResponse,
	OpCnRmiAsyncRequest:         OpCnRmiAsyncConfirm,
	OpCnRpdoRequest:             OpCnRpdoConfirm,
	OpCnFupReadRegisterRequest:  OpCnFupReadRegisterConfirm,
	OpCnFupProgramBeginRequest:  OpCnFupProgramBeginConfirm,
	OpCnFupProgramRequest:       OpCnFupProgramConfirm,
	OpCnFupProgramEndRequest:    OpCnFupProgramEndConfirm,
	OpCnFupReadRequest:          OpCnFupReadConfirm,
	OpCnFupResetRequest:         OpCnFupResetConfirm,
	OpCnWhoAmIRequest:           OpCnWhoAmIConfirm,
}

// ExpectedReply returns the operation type the bridge answers op with.
// ok is false for notifications and fire-and-forget operations.
func ExpectedReply(op OperationType) (reply OperationType, ok bool) {
	reply, ok = expectedReplies[op]
	return reply, ok
}

func (o OperationType) String() string {
	switch o {
	case OpNoOperation:
		return "NoOperation"
	case OpRegisterAppRequest:
		return "RegisterAppRequest"
	case OpStartSessionRequest:
		return "StartSessionRequest"
	case OpCloseSessionRequest:
		return "CloseSessionRequest"
	case OpListRegisteredAppsRequest:
		return "ListRegisteredAppsRequest"
	case OpDeregisterAppRequest:
		return "DeregisterAppRequest"
	case OpChangePinRequest:
		return "ChangePinRequest"
	case OpVersionRequest:
		return "VersionRequest"
	case OpRegisterAppConfirm:
		return "RegisterAppConfirm"
	case OpStartSessionConfirm:
		return "StartSessionConfirm"
	case OpCloseSessionConfirm:
		return "CloseSessionConfirm"
	case OpListRegisteredAppsConfirm:
		return "ListRegisteredAppsConfirm"
	case OpDeregisterAppConfirm:
		return "DeregisterAppConfirm"
	case OpChangePinConfirm:
		return "ChangePinConfirm"
	case OpVersionConfirm:
		return "VersionConfirm"
	case OpGatewayNotification:
		return "GatewayNotification"
	case OpKeepAlive:
		return "KeepAlive"
	case OpCnTimeRequest:
		return "CnTimeRequest"
	case OpCnTimeConfirm:
		return "CnTimeConfirm"
	case OpCnNodeNotification:
		return "CnNodeNotification"
	case OpCnRmiRequest:
		return "CnRmiRequest"
	case OpCnRmiResponse:
		return "CnRmiResponse"
	case OpCnRmiAsyncRequest:
		return "CnRmiAsyncRequest"
	case OpCnRmiAsyncConfirm:
		return "CnRmiAsyncConfirm"
	case OpCnRmiAsyncResponse:
		return "CnRmiAsyncResponse"
	case OpCnRpdoRequest:
		return "CnRpdoRequest"
	case OpCnRpdoConfirm:
		return "CnRpdoConfirm"
	case OpCnRpdoNotification:
		return "CnRpdoNotification"
	case OpCnAlarmNotification:
		return "CnAlarmNotification"
	default:
		return "OperationType(" + itoa(int(o)) + ")"
	}
}

// Result is the bridge's status code on a confirm operation.
type Result uint32

const (
	ResultOK            Result = 0
	ResultBadRequest    Result = 1
	ResultInternalError Result = 2
	ResultNotReachable  Result = 3
	ResultOtherSession  Result = 4
	ResultNotAllowed    Result = 5
	ResultNoResources   Result = 6
	ResultNotExist      Result = 7
	ResultRmiError      Result = 8
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultBadRequest:
		return "BAD_REQUEST"
	case ResultInternalError:
		return "INTERNAL_ERROR"
	case ResultNotReachable:
		return "NOT_REACHABLE"
	case ResultOtherSession:
		return "OTHER_SESSION"
	case ResultNotAllowed:
		return "NOT_ALLOWED"
	case ResultNoResources:
		return "NO_RESOURCES"
	case ResultNotExist:
		return "NOT_EXIST"
	case ResultRmiError:
		return "RMI_ERROR"
	default:
		return "Result(" + itoa(int(r)) + ")"
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	negative := i < 0
	if negative {
		i = -i
	}
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if negative {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
